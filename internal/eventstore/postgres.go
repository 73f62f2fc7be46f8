package eventstore

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rohmanhakim/listing-enricher/internal/events"
	"github.com/rohmanhakim/listing-enricher/internal/metadata"
	"github.com/rohmanhakim/listing-enricher/pkg/failure"
	"github.com/rohmanhakim/listing-enricher/pkg/retry"
	"github.com/rohmanhakim/listing-enricher/pkg/timeutil"
)

// schemaSQL is embedded so the store can bootstrap its own tables.
//
//go:embed schema.sql
var schemaSQL string

const (
	selectCreated = `
		SELECT listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		       builder, payment_token, name_hash, location_hash, nightly_rate::text AS nightly_rate,
		       max_guests, require_proof
		FROM listing_created
		ORDER BY arrival`

	selectMetadataURISet = `
		SELECT listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		       metadata_uri
		FROM listing_metadata_uri_set
		ORDER BY arrival`

	selectPrivateDataSet = `
		SELECT listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		       priv_data_hash, enc_priv_data_cid
		FROM listing_private_data_set
		ORDER BY arrival`

	insertCreated = `
		INSERT INTO listing_created (listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		                             tx_sequence, builder, payment_token, name_hash, location_hash, nightly_rate,
		                             max_guests, require_proof)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::text::numeric, $12, $13)
		ON CONFLICT (listing_id, transaction_hash, tx_sequence) DO NOTHING`

	insertMetadataURISet = `
		INSERT INTO listing_metadata_uri_set (listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		                                      tx_sequence, metadata_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (listing_id, transaction_hash, tx_sequence) DO NOTHING`

	insertPrivateDataSet = `
		INSERT INTO listing_private_data_set (listing_id, block_number, block_timestamp, transaction_hash, transaction_index,
		                                      tx_sequence, priv_data_hash, enc_priv_data_cid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (listing_id, transaction_hash, tx_sequence) DO NOTHING`
)

// PostgresStore is an events.Source backed by the tables in schema.sql.
type PostgresStore struct {
	metadataSink metadata.MetadataSink
	pool         *pgxpool.Pool
}

var _ events.Source = (*PostgresStore)(nil)

// DefaultConnectRetry retries an unreachable database for about half a minute.
func DefaultConnectRetry() retry.RetryParam {
	return retry.NewRetryParam(
		250*time.Millisecond,
		time.Now().UnixNano(),
		5,
		timeutil.NewBackoffParam(time.Second, 2.0, 10*time.Second),
	)
}

// NewPostgresStore creates a connection pool and fails once the database
// stays unreachable for every attempt in retryParam.
func NewPostgresStore(
	ctx context.Context,
	metadataSink metadata.MetadataSink,
	dbURL string,
	retryParam retry.RetryParam,
) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, &StoreError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}

	pool, connectErr := retry.Retry(ctx, retryParam, func(ctx context.Context) (*pgxpool.Pool, failure.ClassifiedError) {
		return connect(ctx, poolConfig)
	})
	if connectErr != nil {
		metadataSink.RecordError(
			time.Now(),
			"eventstore",
			"NewPostgresStore",
			metadata.CauseSourceFailure,
			connectErr.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrSource, "postgres"),
			},
		)
		return nil, connectErr
	}

	return &PostgresStore{metadataSink: metadataSink, pool: pool}, nil
}

func connect(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, failure.ClassifiedError) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseConnect}
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseConnect}
	}
	return pool, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return p.fail("PostgresStore.EnsureSchema", &StoreError{Message: err.Error(), Cause: ErrCauseSchema})
	}
	return nil
}

// Ping is used by the readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

func (p *PostgresStore) Created(ctx context.Context) ([]events.Created, error) {
	rows, err := p.pool.Query(ctx, selectCreated)
	if err != nil {
		return nil, p.fail("PostgresStore.Created", queryError(err))
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[createdRow])
	if err != nil {
		return nil, p.fail("PostgresStore.Created", queryError(err))
	}
	return convertRows(p, "PostgresStore.Created", records, createdRow.toEvent)
}

func (p *PostgresStore) MetadataURIs(ctx context.Context) ([]events.MetadataURISet, error) {
	rows, err := p.pool.Query(ctx, selectMetadataURISet)
	if err != nil {
		return nil, p.fail("PostgresStore.MetadataURIs", queryError(err))
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[metadataURISetRow])
	if err != nil {
		return nil, p.fail("PostgresStore.MetadataURIs", queryError(err))
	}
	return convertRows(p, "PostgresStore.MetadataURIs", records, metadataURISetRow.toEvent)
}

func (p *PostgresStore) PrivateData(ctx context.Context) ([]events.PrivateDataSet, error) {
	rows, err := p.pool.Query(ctx, selectPrivateDataSet)
	if err != nil {
		return nil, p.fail("PostgresStore.PrivateData", queryError(err))
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[privateDataSetRow])
	if err != nil {
		return nil, p.fail("PostgresStore.PrivateData", queryError(err))
	}
	return convertRows(p, "PostgresStore.PrivateData", records, privateDataSetRow.toEvent)
}

// Import appends collections in arrival order, skipping events already
// stored. Events are keyed by listing, transaction and their position among
// that transaction's events for the listing, so re-importing a document is
// a no-op. It returns the number of inserted rows.
func (p *PostgresStore) Import(ctx context.Context, collections events.Collections) (int64, error) {
	batch, err := buildImportBatch(collections)
	if err != nil {
		return 0, p.fail("PostgresStore.Import", &StoreError{Message: err.Error(), Cause: ErrCauseImport})
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			return inserted, p.fail("PostgresStore.Import", &StoreError{
				Message:   fmt.Sprintf("statement %d: %v", i, err),
				Retryable: true,
				Cause:     ErrCauseImport,
			})
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

func buildImportBatch(collections events.Collections) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	created := txSequence{}
	for _, event := range collections.Created {
		row, err := newCreatedRow(event)
		if err != nil {
			return nil, fmt.Errorf("created %s: %w", event.ListingID, err)
		}
		batch.Queue(insertCreated,
			row.ListingID, row.BlockNumber, row.BlockTimestamp, row.TransactionHash, row.TransactionIndex,
			created.next(event.Meta),
			row.Builder, row.PaymentToken, row.NameHash, row.LocationHash, row.NightlyRate, row.MaxGuests, row.RequireProof,
		)
	}
	metadataURIs := txSequence{}
	for _, event := range collections.MetadataURISet {
		row, err := newMetaRow(event.Meta)
		if err != nil {
			return nil, fmt.Errorf("metadataURISet %s: %w", event.ListingID, err)
		}
		batch.Queue(insertMetadataURISet,
			row.ListingID, row.BlockNumber, row.BlockTimestamp, row.TransactionHash, row.TransactionIndex,
			metadataURIs.next(event.Meta),
			event.MetadataURI,
		)
	}
	privateData := txSequence{}
	for _, event := range collections.PrivateDataSet {
		row, err := newMetaRow(event.Meta)
		if err != nil {
			return nil, fmt.Errorf("privateDataSet %s: %w", event.ListingID, err)
		}
		batch.Queue(insertPrivateDataSet,
			row.ListingID, row.BlockNumber, row.BlockTimestamp, row.TransactionHash, row.TransactionIndex,
			privateData.next(event.Meta),
			event.PrivDataHash.Hex(), event.EncPrivDataCid,
		)
	}
	return batch, nil
}

// txSequence numbers the events of one collection that share a listing and
// a transaction, in import order.
type txSequence map[string]int32

func (s txSequence) next(meta events.Meta) int32 {
	key := meta.ListingID + "/" + meta.TransactionHash.Hex()
	seq := s[key]
	s[key] = seq + 1
	return seq
}

func convertRows[R any, E any](p *PostgresStore, action string, records []R, convert func(R) (E, error)) ([]E, error) {
	converted := make([]E, 0, len(records))
	for i, record := range records {
		event, err := convert(record)
		if err != nil {
			return nil, p.fail(action, &StoreError{
				Message: fmt.Sprintf("row %d: %v", i, err),
				Cause:   ErrCauseRowConversion,
			})
		}
		converted = append(converted, event)
	}
	return converted, nil
}

func queryError(err error) *StoreError {
	return &StoreError{Message: err.Error(), Retryable: true, Cause: ErrCauseQuery}
}

func (p *PostgresStore) fail(action string, err *StoreError) error {
	p.metadataSink.RecordError(
		time.Now(),
		"eventstore",
		action,
		MapStoreErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrSource, "postgres"),
		},
	)
	return err
}
