package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/extract"
	"github.com/sells-group/invoice-intake/internal/intake"
	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/ledger"
	"github.com/sells-group/invoice-intake/internal/pipeline"
	"github.com/sells-group/invoice-intake/internal/store"
	"github.com/sells-group/invoice-intake/pkg/hubspot"
)

// intakeEnv holds the components shared by the serve and extract commands.
type intakeEnv struct {
	Store    store.Store // nil when the delivery log is disabled
	Ledger   *ledger.Writer
	Settings *integration.ConfigStore
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *intakeEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates the config for mode and wires the intake gateway,
// extractor, ledger, sinks and delivery log into a Pipeline. Callers should
// defer env.Close().
func initEnv(ctx context.Context, mode string) (*intakeEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	gw, err := intake.NewGateway(cfg.Storage.UploadDir)
	if err != nil {
		return nil, err
	}

	ext, err := extract.NewExtractor(cfg.Extractor, cfg.Anthropic)
	if err != nil {
		return nil, err
	}

	lw, err := ledger.NewWriter(cfg.Storage.LedgerFile)
	if err != nil {
		return nil, err
	}

	policy, err := integration.LoadFieldPolicy(cfg.HubSpot.FieldPolicyFile)
	if err != nil {
		return nil, err
	}

	var crmClient hubspot.Client
	if cfg.HubSpot.APIKey != "" {
		crmClient = hubspot.NewClient(cfg.HubSpot.APIKey,
			hubspot.WithBaseURL(cfg.HubSpot.BaseURL),
			hubspot.WithRateLimit(cfg.HubSpot.RateLimit),
		)
	} else {
		zap.L().Debug("HUBSPOT_API_KEY not set, hubspot sink will be skipped")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []integration.DispatcherOption{integration.WithSinkTimeout(cfg.Integrations.Timeout())}
	if st != nil {
		opts = append(opts, integration.WithDeliveryLog(st))
	}

	settings := integration.NewConfigStore(cfg.Storage.IntegrationsFile)
	dispatcher := integration.NewDispatcher(settings,
		integration.NewCRMSink(crmClient, policy),
		integration.NewWebhookSink(cfg.Integrations.Timeout()),
		opts...,
	)

	p := pipeline.New(gw, extract.NewInvoker(ext, cfg.Extractor.Timeout()), lw, dispatcher)

	zap.L().Info("intake environment ready",
		zap.String("extractor", cfg.Extractor.Provider),
		zap.String("upload_dir", gw.Dir()),
		zap.String("ledger", lw.Path()),
		zap.Strings("crm_fields", policy.EnabledFields()),
		zap.Bool("delivery_log", st != nil),
	)

	return &intakeEnv{
		Store:    st,
		Ledger:   lw,
		Settings: settings,
		Pipeline: p,
	}, nil
}

// initStore opens and migrates the delivery log. An empty delivery_db
// disables it.
func initStore(ctx context.Context) (store.Store, error) {
	if cfg.Storage.DeliveryDB == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DeliveryDB), 0o755); err != nil {
		return nil, eris.Wrap(err, "create delivery db dir")
	}

	st, err := store.NewSQLite(cfg.Storage.DeliveryDB)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate delivery db")
	}
	return st, nil
}
