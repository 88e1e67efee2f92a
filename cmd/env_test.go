package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-intake/internal/config"
	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/pipeline"
	"github.com/sells-group/invoice-intake/internal/store"
)

const extractorResponse = `{"vendor_name": "Acme", "invoice_number": "INV-7", "total_amount": "1,250.50", "items": [{"description": "widgets"}]}`

// useTestConfig points the global config at a temp dir and an httptest
// extractor, restoring the previous config on cleanup.
func useTestConfig(t *testing.T) string {
	t.Helper()

	ext := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(extractorResponse)) //nolint:errcheck
	}))
	t.Cleanup(ext.Close)

	root := t.TempDir()
	c := &config.Config{}
	c.Server.Port = 5000
	c.Server.MaxUploadMB = 16
	c.Storage.UploadDir = filepath.Join(root, "uploads")
	c.Storage.LedgerFile = filepath.Join(root, "uploads", "extracted_invoices.csv")
	c.Storage.IntegrationsFile = filepath.Join(root, "webhook_config.json")
	c.Storage.DeliveryDB = filepath.Join(root, "db", "deliveries.db")
	c.Integrations.TimeoutSecs = 5
	c.Extractor.Provider = "http"
	c.Extractor.URL = ext.URL
	c.Extractor.TimeoutSecs = 5

	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
	return root
}

func writeDocument(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	useTestConfig(t)
	cfg.Extractor.URL = ""

	_, err := initEnv(context.Background(), "extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extractor.url is required")
}

func TestInitEnv_WiresDeliveryLog(t *testing.T) {
	root := useTestConfig(t)

	env, err := initEnv(context.Background(), "extract")
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Store)
	assert.FileExists(t, filepath.Join(root, "db", "deliveries.db"))
	assert.DirExists(t, filepath.Join(root, "uploads"))
}

func TestInitEnv_NoDeliveryDB(t *testing.T) {
	useTestConfig(t)
	cfg.Storage.DeliveryDB = ""

	env, err := initEnv(context.Background(), "extract")
	require.NoError(t, err)
	defer env.Close()
	assert.Nil(t, env.Store)
}

func TestRunExtract_RecordsAndDispatches(t *testing.T) {
	root := useTestConfig(t)

	var hits atomic.Int32
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	env, err := initEnv(context.Background(), "extract")
	require.NoError(t, err)
	defer env.Close()
	require.True(t, env.Settings.Save(integration.Settings{WebhookEnabled: true, WebhookURL: hook.URL}))

	doc := writeDocument(t, root, "march.pdf")
	res, err := runExtract(context.Background(), env.Pipeline, doc, pipeline.Options{Record: true, Dispatch: true})
	require.NoError(t, err)

	assert.Equal(t, "Acme", res.Invoice.VendorName)
	assert.InDelta(t, 1250.50, float64(res.Invoice.TotalAmount), 0.001)
	require.NotNil(t, res.Deliveries.Webhook)
	assert.True(t, res.Deliveries.Webhook.Succeeded())
	assert.Nil(t, res.Deliveries.HubSpot)
	assert.Equal(t, int32(1), hits.Load())

	rows, err := env.Ledger.Rows()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, res.WorkingName, rows[1][1])

	logged, err := env.Store.ListDeliveries(context.Background(), store.DeliveryFilter{})
	require.NoError(t, err)
	assert.Len(t, logged, 1)

	assert.FileExists(t, doc, "the source document is left in place")
}

func TestRunExtract_DryRun(t *testing.T) {
	root := useTestConfig(t)

	env, err := initEnv(context.Background(), "extract")
	require.NoError(t, err)
	defer env.Close()

	res, err := runExtract(context.Background(), env.Pipeline, writeDocument(t, root, "a.pdf"), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, "INV-7", res.Invoice.InvoiceNumber)
	assert.Empty(t, res.LedgerRow)
	assert.False(t, env.Ledger.Exists())
}

func TestRunExtract_MissingFile(t *testing.T) {
	useTestConfig(t)

	env, err := initEnv(context.Background(), "extract")
	require.NoError(t, err)
	defer env.Close()

	_, err = runExtract(context.Background(), env.Pipeline, "/does/not/exist.pdf", pipeline.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract: open")
}
