package cmd_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	cmd "github.com/rohmanhakim/listing-enricher/internal/cli"
	"github.com/rohmanhakim/listing-enricher/internal/config"
	"github.com/rohmanhakim/listing-enricher/pkg/hashutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	palermoCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
	v0CID      = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

// newGateway serves documents by path suffix; anything else is a 504
func newGateway(t *testing.T, documents map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for suffix, body := range documents {
			if strings.HasSuffix(r.URL.Path, suffix) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := cmd.Run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func writeEventsFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	doc := `{
		"created": [{"listingId": "42", "blockNumber": 100, "blockTimestamp": 1717000000,
			"transactionHash": "0x9f2c5c3c4a4f1b0e7e8c3b8a2d1f0e9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e",
			"builder": "0x52908400098527886E0F7030069857D2E4169EE7",
			"paymentToken": "0x0000000000000000000000000000000000000000",
			"nameHash": "0x1111111111111111111111111111111111111111111111111111111111111111",
			"locationHash": "0x2222222222222222222222222222222222222222222222222222222222222222",
			"nightlyRate": "1000", "maxGuests": 2, "requireProof": false}],
		"metadataURISet": [
			{"listingId": "42", "blockNumber": 100, "blockTimestamp": 1717000000,
			 "transactionHash": "0x9f2c5c3c4a4f1b0e7e8c3b8a2d1f0e9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e",
			 "metadataURI": "invalid-cid-123"},
			{"listingId": "42", "blockNumber": 120, "blockTimestamp": 1717000240,
			 "transactionHash": "0xaaaa5c3c4a4f1b0e7e8c3b8a2d1f0e9c8b7a6f5e4d3c2b1a0f9e8d7c6b5a4f3e",
			 "metadataURI": "ipfs://` + palermoCID + `"}
		],
		"privateDataSet": []
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestInitConfigNoFlags(t *testing.T) {
	cmd.ResetFlags()

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	defaults, err := config.WithDefault().Build()
	require.NoError(t, err)
	assert.Equal(t, defaults.Gateways(), cfg.Gateways())
	assert.Equal(t, defaults.Timeout(), cfg.Timeout())
	assert.Equal(t, defaults.Concurrency(), cfg.Concurrency())
	assert.Equal(t, defaults.OutputDir(), cfg.OutputDir())
	assert.False(t, cfg.DryRun())
}

func TestInitConfigFlagsOverride(t *testing.T) {
	cmd.ResetFlags()
	cmd.SetGatewaysForTest([]string{"https://a.example.com/ipfs", "https://b.example.com/ipfs"})
	cmd.SetTimeoutForTest(2 * time.Second)
	cmd.SetConcurrencyForTest(0)
	cmd.SetUserAgentForTest("test-agent")
	cmd.SetOutputDirForTest("snapshots")
	cmd.SetDryRunForTest(true)
	cmd.SetLogLevelForTest("debug")

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)

	gateways := cfg.Gateways()
	require.Len(t, gateways, 2)
	assert.Equal(t, "https://a.example.com/ipfs", gateways[0].BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, 0, cfg.Concurrency())
	assert.Equal(t, "test-agent", cfg.UserAgent())
	assert.Equal(t, "snapshots", cfg.OutputDir())
	assert.True(t, cfg.DryRun())
}

func TestInitConfigFlagsOverrideFile(t *testing.T) {
	cmd.ResetFlags()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 3s\nuserAgent: from-file\n"), 0644))
	cmd.SetConfigFileForTest(path)
	cmd.SetUserAgentForTest("from-flag")

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Timeout())
	assert.Equal(t, "from-flag", cfg.UserAgent())
}

func TestInitConfigEnvironmentAuth(t *testing.T) {
	cmd.ResetFlags()
	t.Setenv(config.EnvGatewayAuth, "Bearer token")

	cfg, err := cmd.InitConfigWithError()
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", cfg.Gateways()[0].AuthHeader)
	assert.Empty(t, cfg.Gateways()[1].AuthHeader)
}

func TestInitConfigErrors(t *testing.T) {
	cmd.ResetFlags()
	cmd.SetConfigFileForTest(filepath.Join(t.TempDir(), "missing.json"))
	_, err := cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrFileDoesNotExist)

	cmd.ResetFlags()
	cmd.SetGatewaysForTest([]string{"not a url"})
	_, err = cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cmd.ResetFlags()
	cmd.SetLogLevelForTest("chatty")
	_, err = cmd.InitConfigWithError()
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestResolveCommand(t *testing.T) {
	cmd.ResetFlags()
	primary := newGateway(t, nil)
	fallback := newGateway(t, map[string]string{palermoCID: `{"name":"Hacker House Palermo"}`})

	stdout, _, err := run(t, "resolve",
		"--gateway", primary.URL+"/ipfs",
		"--gateway", fallback.URL+"/ipfs",
		"--log-file", filepath.Join(t.TempDir(), "enricher.log"),
		palermoCID, "invalid-cid-123",
	)
	require.NoError(t, err)

	var resolutions map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &resolutions))
	require.Len(t, resolutions, 2)
	assert.Equal(t, "network", resolutions[palermoCID]["source"])
	assert.Equal(t, "Hacker House Palermo", resolutions[palermoCID]["name"])
	assert.Equal(t, "degraded", resolutions["invalid-cid-123"]["source"])
}

func TestResolveCommand_Save(t *testing.T) {
	cmd.ResetFlags()
	outputDir := t.TempDir()
	gw := newGateway(t, map[string]string{palermoCID: `{"name":"Casa"}`})

	_, stderr, err := run(t, "resolve", "--save",
		"--gateway", gw.URL+"/ipfs",
		"--output-dir", outputDir,
		"--log-file", filepath.Join(t.TempDir(), "enricher.log"),
		palermoCID,
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 1 resolutions")

	matches, globErr := filepath.Glob(filepath.Join(outputDir, "resolutions-*.json"))
	require.NoError(t, globErr)
	assert.Len(t, matches, 1)
}

func TestResolveCommand_RequiresArgs(t *testing.T) {
	cmd.ResetFlags()
	_, _, err := run(t, "resolve")
	assert.Error(t, err)
}

func TestMergeCommand_DryRun(t *testing.T) {
	cmd.ResetFlags()
	gw := newGateway(t, map[string]string{palermoCID: `{"name":"Hacker House Palermo","location":"Palermo, Italy"}`})

	stdout, _, err := run(t, "merge", "--dry-run",
		"--gateway", gw.URL+"/ipfs",
		"--events-file", writeEventsFile(t),
		"--log-file", filepath.Join(t.TempDir(), "enricher.log"),
	)
	require.NoError(t, err)

	var listings []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &listings))
	require.Len(t, listings, 1)
	assert.Equal(t, "42", listings[0]["listingId"])
	assert.Equal(t, "Hacker House Palermo", listings[0]["displayName"])
	assert.Equal(t, "Palermo, Italy", listings[0]["displayLocation"])
	assert.Equal(t, true, listings[0]["hasMetadata"])
	assert.Equal(t, float64(120), listings[0]["updatedAtBlock"])
}

func TestMergeCommand_WritesSnapshot(t *testing.T) {
	cmd.ResetFlags()
	outputDir := t.TempDir()
	gw := newGateway(t, nil)

	stdout, _, err := run(t, "merge",
		"--gateway", gw.URL+"/ipfs",
		"--events-file", writeEventsFile(t),
		"--output-dir", outputDir,
		"--log-file", filepath.Join(t.TempDir(), "enricher.log"),
	)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 1 listings")

	matches, globErr := filepath.Glob(filepath.Join(outputDir, "listings-*.json"))
	require.NoError(t, globErr)
	require.Len(t, matches, 1)

	data, readErr := os.ReadFile(matches[0])
	require.NoError(t, readErr)
	var listings []map[string]any
	require.NoError(t, json.Unmarshal(data, &listings))
	assert.Equal(t, false, listings[0]["hasMetadata"], "unreachable gateways yield degraded metadata")

	expected, hashErr := hashutil.HashBytes(data, hashutil.HashAlgoBLAKE3)
	require.NoError(t, hashErr)
	assert.Equal(t, "listings-"+expected[:12]+".json", filepath.Base(matches[0]))
}

func TestMergeCommand_NoEventSource(t *testing.T) {
	cmd.ResetFlags()
	_, _, err := run(t, "merge", "--log-file", filepath.Join(t.TempDir(), "enricher.log"))
	assert.ErrorIs(t, err, cmd.ErrNoEventSource)
}

func TestValidateCommand(t *testing.T) {
	cmd.ResetFlags()

	stdout, _, err := run(t, "validate", v0CID, "https://example.com/doc.json")
	require.NoError(t, err)
	assert.Contains(t, stdout, "sha2-256")
	assert.Contains(t, stdout, "0x70")
	assert.Contains(t, stdout, "url")

	cmd.ResetFlags()
	stdout, _, err = run(t, "validate", v0CID, "invalid-cid-123")
	assert.ErrorContains(t, err, "1 of 2 identifiers are ill-formed")
	assert.Contains(t, stdout, "invalid-cid-123")
}

func TestVersionCommand(t *testing.T) {
	cmd.ResetFlags()

	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "listing-enricher "))
}

func TestImportEventsCommand_RequiresBothSources(t *testing.T) {
	cmd.ResetFlags()

	_, _, err := run(t, "import-events", "--events-file", writeEventsFile(t), "--log-file", filepath.Join(t.TempDir(), "enricher.log"))
	assert.ErrorContains(t, err, "needs both")
}
