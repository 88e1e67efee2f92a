// Package pipeline runs one uploaded document through intake, extraction,
// the ledger and integration fan-out.
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/extract"
	"github.com/sells-group/invoice-intake/internal/intake"
	"github.com/sells-group/invoice-intake/internal/integration"
	"github.com/sells-group/invoice-intake/internal/model"
)

// Recorder appends an extracted invoice to the ledger.
type Recorder interface {
	Append(filename string, inv *model.Invoice) ([]string, error)
}

// Dispatcher fans an extracted invoice out to the integration sinks.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv *model.Invoice) integration.Report
}

// Options selects the side effects of a successful extraction.
type Options struct {
	Record   bool // append a ledger row
	Dispatch bool // run the integration sinks
}

// Result is the outcome of a successful run.
type Result struct {
	WorkingName string             `json:"working_name"`
	Invoice     *model.Invoice     `json:"invoice"`
	LedgerRow   []string           `json:"ledger_row,omitempty"`
	Deliveries  integration.Report `json:"deliveries"`
	Elapsed     time.Duration      `json:"elapsed_ns"`
}

// Pipeline orchestrates a single document.
type Pipeline struct {
	gateway    *intake.Gateway
	invoker    *extract.Invoker
	ledger     Recorder
	dispatcher Dispatcher
}

// New creates a Pipeline with all dependencies.
func New(gw *intake.Gateway, inv *extract.Invoker, ledger Recorder, dispatcher Dispatcher) *Pipeline {
	return &Pipeline{
		gateway:    gw,
		invoker:    inv,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// Process stages r under a fresh working name, extracts it and, on success,
// records the ledger row before dispatching to the sinks. The working file
// is removed before Process returns, whatever the outcome.
//
// Errors are an intake.ValidationError for bad input, extract.ErrNoData when
// the extractor found nothing, an *extract.Failure when it errored, or a
// wrapped I/O error. Sink failures never produce an error.
func (p *Pipeline) Process(ctx context.Context, filename string, r io.Reader, opts Options) (*Result, error) {
	start := time.Now()

	doc, err := p.gateway.Accept(filename, r)
	if err != nil {
		return nil, err
	}
	defer doc.Release()

	log := zap.L().With(zap.String("upload", filename), zap.String("working_name", doc.Name))

	inv, err := p.invoker.Invoke(ctx, doc.Path)
	if err != nil {
		return nil, err
	}

	res := &Result{WorkingName: doc.Name, Invoice: inv}

	if opts.Record {
		row, err := p.ledger.Append(doc.Name, inv)
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: record invoice")
		}
		res.LedgerRow = row
	}

	if opts.Dispatch && p.dispatcher != nil {
		res.Deliveries = p.dispatcher.Dispatch(ctx, inv)
	}

	res.Elapsed = time.Since(start)
	log.Info("pipeline: invoice processed",
		zap.String("vendor", inv.VendorName),
		zap.Bool("recorded", opts.Record),
		zap.Int("deliveries", len(res.Deliveries.Deliveries())),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}
