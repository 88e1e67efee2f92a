package ledger

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// SheetName is the worksheet the ledger is exported to.
const SheetName = "Invoices"

// numericColumns are written as numbers rather than text.
var numericColumns = map[string]bool{
	"total_amount": true,
	"tax_amount":   true,
	"subtotal":     true,
	"items_count":  true,
}

// ExportXLSX writes the ledger as a single-sheet workbook. It returns
// ErrNoLedger when there is no ledger yet.
func (w *Writer) ExportXLSX(out io.Writer) error {
	rows, err := w.Rows()
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNoLedger
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return eris.Wrap(err, "ledger: add sheet")
	}

	var header []string
	for i, record := range rows {
		if i == 0 {
			header = record
		}
		row := sheet.AddRow()
		for j, value := range record {
			cell := row.AddCell()
			if i > 0 && j < len(header) && numericColumns[header[j]] {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(value)
		}
	}

	if err := f.Write(out); err != nil {
		return eris.Wrap(err, "ledger: write xlsx")
	}
	return nil
}
