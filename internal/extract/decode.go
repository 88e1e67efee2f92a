package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
)

// textFields are record keys typed as strings. Extractors sometimes emit
// bare numbers for them (an invoice number of 1042), which are coerced.
var textFields = []string{
	"vendor_name", "vendor_gst", "invoice_number", "invoice_date",
	"billing_address", "shipping_address", "payment_terms",
	"notes", "currency", "due_date", "po_number", "vendor_contact",
	"attachment_url", "department", "project_code", "vendor_category",
	"payment_method", "bank_details", "parent_invoice",
	"custom_field_1", "custom_field_2", "custom_field_3", "custom_field_4", "custom_field_5",
}

// itemTextFields are the string-typed keys of a line item. HSN codes in
// particular tend to arrive as bare numbers.
var itemTextFields = []string{"description", "hsn_code"}

// Decode validates raw extractor output and converts it to an invoice record.
// Empty output and any falsy JSON value (null, false, 0, "", [] or {}) mean
// "no data" and yield (nil, nil).
func Decode(data []byte) (*model.Invoice, error) {
	data = stripCodeFence(bytes.TrimSpace(data))
	if len(data) == 0 {
		return nil, nil
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "extract: parse extractor output")
	}

	switch v := doc.(type) {
	case nil:
		return nil, nil
	case bool:
		if !v {
			return nil, nil
		}
	case float64:
		if v == 0 {
			return nil, nil
		}
	case string:
		if v == "" {
			return nil, nil
		}
	case []any:
		if len(v) == 0 {
			return nil, nil
		}
	case map[string]any:
		if len(v) == 0 {
			return nil, nil
		}
		coerceText(v)
		if err := invoiceSchema.Validate(v); err != nil {
			return nil, eris.Wrap(err, "extract: extractor output does not match schema")
		}
		normalized, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "extract: re-encode extractor output")
		}
		var inv model.Invoice
		if err := json.Unmarshal(normalized, &inv); err != nil {
			return nil, eris.Wrap(err, "extract: decode invoice")
		}
		return &inv, nil
	}
	return nil, eris.New("extract: extractor output is not an object")
}

func coerceText(m map[string]any) {
	coerceKeys(m, textFields)
	items, _ := m["items"].([]any)
	for _, it := range items {
		if item, ok := it.(map[string]any); ok {
			coerceKeys(item, itemTextFields)
		}
	}
}

func coerceKeys(m map[string]any, keys []string) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			m[k] = model.Amount(v).String()
		case bool:
			m[k] = fmt.Sprintf("%t", v)
		}
	}
}

// stripCodeFence removes a surrounding ```json ... ``` block, which language
// model extractors tend to add.
func stripCodeFence(data []byte) []byte {
	s := string(data)
	if !strings.HasPrefix(s, "```") {
		return data
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return bytes.TrimSpace([]byte(s))
}
