// Package extract invokes the external field extractor and classifies its
// outcome. The extraction algorithm itself lives behind the Extractor
// interface.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/model"
)

// Extractor turns a document on disk into an invoice record. A nil record with
// a nil error means the extractor found nothing usable.
type Extractor interface {
	Extract(ctx context.Context, path string) (*model.Invoice, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (*model.Invoice, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, path string) (*model.Invoice, error) {
	return f(ctx, path)
}

// ErrNoData is the soft failure: the extractor returned no record.
var ErrNoData = eris.New("Failed to extract invoice data")

// Failure is the hard failure: the extractor itself errored. Err carries the
// internal detail, which belongs in logs rather than client responses.
type Failure struct {
	Err error
}

func (f *Failure) Error() string {
	return "extract: extractor failed: " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailure reports whether err is a hard extraction failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Invoker calls an Extractor once per document under a deadline.
type Invoker struct {
	extractor Extractor
	timeout   time.Duration
}

// NewInvoker wraps ext. A non-positive timeout leaves the caller's context
// deadline as the only limit.
func NewInvoker(ext Extractor, timeout time.Duration) *Invoker {
	return &Invoker{extractor: ext, timeout: timeout}
}

// Invoke runs the extractor against path. It returns the record on success,
// ErrNoData when the extractor produced nothing, or a *Failure when it
// errored or panicked. No retries are attempted.
func (i *Invoker) Invoke(ctx context.Context, path string) (inv *model.Invoice, err error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			inv = nil
			err = &Failure{Err: eris.Errorf("panic: %v", r)}
		}
		if err != nil {
			zap.L().Warn("extract: no invoice extracted",
				zap.String("path", path),
				zap.Bool("hard_failure", IsFailure(err)),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
		}
	}()

	inv, err = i.extractor.Extract(ctx, path)
	if err != nil {
		return nil, &Failure{Err: err}
	}
	if inv == nil {
		return nil, ErrNoData
	}

	zap.L().Info("extract: invoice extracted",
		zap.String("path", path),
		zap.String("vendor", inv.VendorName),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Duration("elapsed", time.Since(start)),
	)
	return inv, nil
}
