package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohmanhakim/listing-enricher/internal/content"
	"github.com/rohmanhakim/listing-enricher/internal/identifier"
)

// SingleResolver resolves one identifier. It never fails.
type SingleResolver interface {
	ResolveOne(ctx context.Context, rawID string) content.ResolvedMetadata
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Catalog  *Catalog
	Resolver SingleResolver
	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer
	// Database is pinged by /ready when set
	Database Pinger
}

const requestIDHeader = "X-Request-ID"

// NewRouter wires the read API.
// Public: /health, /ready, /metrics
// Listings: /listings, /listings/:id, POST /refresh
// Resolution: /resolve, /resolve/:id, /validate
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestID())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if !deps.Catalog.Loaded() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": ErrNotLoaded.Error()})
			return
		}
		if deps.Database != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()
			if err := deps.Database.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	registerListingRoutes(r, deps.Catalog)
	registerResolveRoutes(r, deps.Resolver)

	return r
}

func registerListingRoutes(r gin.IRoutes, catalog *Catalog) {
	r.GET("/listings", func(c *gin.Context) {
		listings, refreshedAt, err := catalog.Listings()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"refreshedAt": refreshedAt.UTC().Format(time.RFC3339),
			"count":       len(listings),
			"listings":    listings,
		})
	})

	r.GET("/listings/:id", func(c *gin.Context) {
		listing, found, err := catalog.Listing(c.Param("id"))
		switch {
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		case !found:
			c.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
		default:
			c.JSON(http.StatusOK, listing)
		}
	})

	r.POST("/refresh", func(c *gin.Context) {
		// the refresh outlives a disconnecting client
		if err := catalog.Refresh(context.WithoutCancel(c.Request.Context())); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		listings, refreshedAt, _ := catalog.Listings()
		c.JSON(http.StatusOK, gin.H{
			"refreshedAt": refreshedAt.UTC().Format(time.RFC3339),
			"count":       len(listings),
		})
	})
}

func registerResolveRoutes(r gin.IRoutes, resolver SingleResolver) {
	resolve := func(c *gin.Context, rawID string) {
		if rawID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		c.JSON(http.StatusOK, resolver.ResolveOne(c.Request.Context(), rawID))
	}

	// the query form accepts identifiers that contain slashes, such as
	// ipfs:// URIs and absolute URLs
	r.GET("/resolve", func(c *gin.Context) {
		resolve(c, c.Query("id"))
	})
	r.GET("/resolve/:id", func(c *gin.Context) {
		resolve(c, c.Param("id"))
	})

	r.GET("/validate", func(c *gin.Context) {
		rawID := c.Query("id")
		if rawID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		classification := identifier.Validate(rawID)
		body := gin.H{
			"id":          rawID,
			"wellFormed":  classification.WellFormed,
			"version":     string(classification.Version),
			"absoluteURL": classification.AbsoluteURL,
			"normalized":  classification.Normalized,
		}
		if classification.WellFormed {
			if details, err := identifier.Decode(rawID); err == nil {
				body["codec"] = details.Codec
				body["hashFunction"] = details.HashFunction
				body["digestLength"] = details.DigestLength
			} else {
				body["decodeError"] = err.Error()
			}
		}
		c.JSON(http.StatusOK, body)
	})
}

// requestID echoes a caller-supplied X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// Serve runs handler on addr until ctx is done, then shuts down within
// shutdownTimeout.
func Serve(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
