package model

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

// Invoice is the structured record an Extractor produces for one document.
// Every field is optional; absent values project as empty string or zero.
type Invoice struct {
	// Core fields.
	VendorName      string     `json:"vendor_name,omitempty"`
	VendorGST       string     `json:"vendor_gst,omitempty"`
	InvoiceNumber   string     `json:"invoice_number,omitempty"`
	InvoiceDate     string     `json:"invoice_date,omitempty"`
	TotalAmount     Amount     `json:"total_amount"`
	TaxAmount       Amount     `json:"tax_amount,omitempty"`
	Subtotal        Amount     `json:"subtotal,omitempty"`
	Items           []LineItem `json:"items"`
	BillingAddress  string     `json:"billing_address,omitempty"`
	ShippingAddress string     `json:"shipping_address,omitempty"`
	PaymentTerms    string     `json:"payment_terms,omitempty"`

	// Enrichment fields.
	TaxDetails      map[string]any `json:"tax_details,omitempty"`
	DiscountDetails map[string]any `json:"discount_details,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Currency        string         `json:"currency,omitempty"`
	ExchangeRate    Amount         `json:"exchange_rate,omitempty"`
	DueDate         string         `json:"due_date,omitempty"`
	PONumber        string         `json:"po_number,omitempty"`
	VendorContact   string         `json:"vendor_contact,omitempty"`
	AttachmentURL   string         `json:"attachment_url,omitempty"`
	Department      string         `json:"department,omitempty"`
	ProjectCode     string         `json:"project_code,omitempty"`
	VendorCategory  string         `json:"vendor_category,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	BankDetails     string         `json:"bank_details,omitempty"`
	Recurring       bool           `json:"recurring,omitempty"`
	ParentInvoice   string         `json:"parent_invoice,omitempty"`
	RiskScore       Amount         `json:"risk_score,omitempty"`
	CustomField1    string         `json:"custom_field_1,omitempty"`
	CustomField2    string         `json:"custom_field_2,omitempty"`
	CustomField3    string         `json:"custom_field_3,omitempty"`
	CustomField4    string         `json:"custom_field_4,omitempty"`
	CustomField5    string         `json:"custom_field_5,omitempty"`

	// Extra holds extractor keys the record has no field for. They are
	// echoed back when the invoice is marshaled.
	Extra map[string]any `json:"-"`
}

// LineItem is one row of an invoice's itemized charges.
type LineItem struct {
	Description string `json:"description,omitempty"`
	HSNCode     string `json:"hsn_code,omitempty"`
	Quantity    Amount `json:"quantity,omitempty"`
	UnitPrice   Amount `json:"unit_price,omitempty"`
	TaxRate     Amount `json:"tax_rate,omitempty"`
	Amount      Amount `json:"amount,omitempty"`
}

// ItemCount returns the number of line items.
func (inv *Invoice) ItemCount() int {
	if inv == nil {
		return 0
	}
	return len(inv.Items)
}

var invoiceKeys = jsonKeys(reflect.TypeOf(Invoice{}))

func jsonKeys(t reflect.Type) map[string]bool {
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}

// MarshalJSON keeps items as an empty array rather than null and merges
// Extra keys alongside the typed fields.
func (inv Invoice) MarshalJSON() ([]byte, error) {
	type alias Invoice
	if inv.Items == nil {
		inv.Items = []LineItem{}
	}
	data, err := json.Marshal(alias(inv))
	if err != nil || len(inv.Extra) == 0 {
		return data, err
	}

	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, eris.Wrap(err, "model: merge extra keys")
	}
	for k, v := range inv.Extra {
		if _, ok := merged[k]; !ok && !invoiceKeys[k] {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the typed fields and keeps unknown keys in Extra.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	type alias Invoice
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if invoiceKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		a.Extra = raw
	}
	*inv = Invoice(a)
	return nil
}

// Amount is a monetary or numeric value that extractors may emit either as a
// JSON number or as a formatted string such as "1,250.00" or "₹ 99".
type Amount float64

// String renders the amount without trailing zeros ("100", "12.5").
func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', -1, 64)
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}

	if data[0] != '"' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return eris.Wrapf(err, "model: parse amount %s", string(data))
		}
		*a = Amount(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return eris.Wrap(err, "model: parse amount string")
	}
	f, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// ParseAmount strips currency markers, grouping separators and whitespace
// from s and parses the remainder. A string with no digits parses as zero.
func ParseAmount(s string) (float64, error) {
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, nil
	}
	// Keep a sign or a leading decimal point that belongs to the number,
	// but not the dot of a prefix like "Rs.".
	for start > 0 {
		prev := s[start-1]
		if prev == '-' {
			start--
			break
		}
		if prev == '.' && (start == 1 || !unicode.IsLetter(rune(s[start-2]))) {
			start--
			continue
		}
		break
	}

	var b strings.Builder
	for _, r := range s[start:] {
		switch {
		case unicode.IsDigit(r), r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: parse amount %q", s)
	}
	return f, nil
}
