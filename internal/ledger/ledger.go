// Package ledger appends one fixed-schema CSV row per successfully extracted
// invoice and exports the ledger for download.
package ledger

import (
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/invoice-intake/internal/model"
)

// TimestampLayout formats the timestamp column (local time, microseconds).
const TimestampLayout = "2006-01-02T15:04:05.000000"

// ErrNoLedger is returned by readers when no invoice has been recorded yet.
var ErrNoLedger = eris.New("ledger: no ledger file yet")

// Header is the ledger's column order.
var Header = []string{
	"timestamp", "filename", "vendor_name", "vendor_gst", "invoice_number",
	"invoice_date", "total_amount", "tax_amount", "subtotal", "items_count",
	"billing_address", "shipping_address", "payment_terms",
}

// Project maps an invoice onto the ledger columns. Missing text fields
// project as "" and missing amounts as "0".
func Project(ts time.Time, filename string, inv *model.Invoice) []string {
	if inv == nil {
		inv = &model.Invoice{}
	}
	return []string{
		ts.Format(TimestampLayout),
		filename,
		inv.VendorName,
		inv.VendorGST,
		inv.InvoiceNumber,
		inv.InvoiceDate,
		inv.TotalAmount.String(),
		inv.TaxAmount.String(),
		inv.Subtotal.String(),
		strconv.Itoa(inv.ItemCount()),
		inv.BillingAddress,
		inv.ShippingAddress,
		inv.PaymentTerms,
	}
}

// Writer is the single writer for one ledger file. All appends and reads in
// the process go through the same Writer so the header check and the append
// happen under one lock.
type Writer struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

// NewWriter returns a Writer for path, creating its parent directory.
func NewWriter(path string) (*Writer, error) {
	if path == "" {
		return nil, eris.New("ledger: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "ledger: create dir for %s", path)
	}
	return &Writer{path: path, now: time.Now}, nil
}

// Path returns the ledger file path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one row for inv, preceded by the header when the ledger is
// absent or empty. It returns the row written.
func (w *Writer) Append(filename string, inv *model.Invoice) ([]string, error) {
	if inv == nil {
		inv = &model.Invoice{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", w.path)
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: stat %s", w.path)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(Header); err != nil {
			return nil, eris.Wrap(err, "ledger: write header")
		}
	}

	row := Project(w.now(), filename, inv)
	if err := cw.Write(row); err != nil {
		return nil, eris.Wrap(err, "ledger: write row")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, eris.Wrap(err, "ledger: flush")
	}
	if err := f.Sync(); err != nil {
		return nil, eris.Wrap(err, "ledger: sync")
	}

	zap.L().Debug("ledger: row appended",
		zap.String("filename", filename),
		zap.String("vendor", inv.VendorName),
		zap.Bool("header", info.Size() == 0),
	)
	return row, nil
}

// Exists reports whether the ledger file is present.
func (w *Writer) Exists() bool {
	_, err := os.Stat(w.path)
	return err == nil
}

// WriteTo copies the raw ledger file to out. It returns ErrNoLedger when
// there is no ledger yet.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNoLedger
	}
	if err != nil {
		return 0, eris.Wrapf(err, "ledger: open %s", w.path)
	}
	defer f.Close() //nolint:errcheck

	n, err := io.Copy(out, f)
	if err != nil {
		return n, eris.Wrap(err, "ledger: copy")
	}
	return n, nil
}

// Rows reads every record, header included. A missing ledger yields no rows.
func (w *Writer) Rows() ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ledger: open %s", w.path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "ledger: read")
	}
	return rows, nil
}

