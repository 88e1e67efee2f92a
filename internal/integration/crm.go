package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/pkg/hubspot"
)

// Fixed values the CRM payload carries for every processed invoice.
const (
	crmInvoiceStatus     = "processed"
	crmSystemUser        = "invoice_scanner"
	crmIntegrationSource = "invoice_scanner_api"
	crmDefaultCurrency   = "INR"
)

// BuildCRMProperties builds the CRM company properties for inv. The company
// name (when known), the total amount and the invoice status are always
// present; every other property is included only when policy enables it and
// its value is non-empty.
func BuildCRMProperties(inv *model.Invoice, policy FieldPolicy, now time.Time) map[string]string {
	if inv == nil {
		inv = &model.Invoice{}
	}

	props := map[string]string{
		"total_amount":   inv.TotalAmount.String(),
		"invoice_status": crmInvoiceStatus,
	}
	if inv.VendorName != "" {
		props["company_name"] = inv.VendorName
	}

	values := optionalCRMValues(inv, now)
	for _, field := range PolicyFields {
		if !policy.Enabled(field) {
			continue
		}
		if v := values[field]; v != "" {
			props[field] = v
		}
	}
	return props
}

func optionalCRMValues(inv *model.Invoice, now time.Time) map[string]string {
	currency := inv.Currency
	if currency == "" {
		currency = crmDefaultCurrency
	}
	exchangeRate := inv.ExchangeRate
	if exchangeRate == 0 {
		exchangeRate = 1
	}
	items := inv.Items
	if items == nil {
		items = []model.LineItem{}
	}

	return map[string]string{
		"invoice_number":     inv.InvoiceNumber,
		"invoice_date":       inv.InvoiceDate,
		"vendor_gst":         inv.VendorGST,
		"invoice_items":      jsonString(items),
		"billing_address":    inv.BillingAddress,
		"shipping_address":   inv.ShippingAddress,
		"payment_terms":      inv.PaymentTerms,
		"tax_details":        jsonObject(inv.TaxDetails),
		"discount_details":   jsonObject(inv.DiscountDetails),
		"notes":              inv.Notes,
		"currency":           currency,
		"exchange_rate":      exchangeRate.String(),
		"due_date":           inv.DueDate,
		"po_number":          inv.PONumber,
		"vendor_contact":     inv.VendorContact,
		"line_items_count":   strconv.Itoa(inv.ItemCount()),
		"attachment_url":     inv.AttachmentURL,
		"processing_status":  "completed",
		"approval_status":    "pending",
		"payment_status":     "pending",
		"created_by":         crmSystemUser,
		"last_modified_by":   crmSystemUser,
		"tags":               "automated_processing",
		"department":         inv.Department,
		"project_code":       inv.ProjectCode,
		"vendor_category":    inv.VendorCategory,
		"payment_method":     inv.PaymentMethod,
		"bank_details":       inv.BankDetails,
		"recurring":          strconv.FormatBool(inv.Recurring),
		"parent_invoice":     inv.ParentInvoice,
		"workflow_stage":     "data_extracted",
		"escalation_level":   "0",
		"risk_score":         inv.RiskScore.String(),
		"compliance_status":  "pending_review",
		"audit_trail":        auditTrail(now),
		"integration_source": crmIntegrationSource,
		"custom_field_1":     inv.CustomField1,
		"custom_field_2":     inv.CustomField2,
		"custom_field_3":     inv.CustomField3,
		"custom_field_4":     inv.CustomField4,
		"custom_field_5":     inv.CustomField5,
	}
}

type auditEntry struct {
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
}

func auditTrail(now time.Time) string {
	return jsonString([]auditEntry{{
		Action:    "data_extracted",
		Timestamp: now.Format(time.RFC3339),
		User:      "system",
	}})
}

func jsonObject(m map[string]any) string {
	if m == nil {
		m = map[string]any{}
	}
	return jsonString(m)
}

// jsonString encodes v, returning "" if it cannot be encoded so the field is
// dropped from the payload.
func jsonString(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// CRMSink creates one CRM company per invoice.
type CRMSink struct {
	client hubspot.Client
	policy FieldPolicy
	now    func() time.Time
}

// NewCRMSink returns a CRM sink. A nil client means no credential is
// configured; the sink then skips every delivery with a warning.
func NewCRMSink(client hubspot.Client, policy FieldPolicy) *CRMSink {
	if policy == nil {
		policy = DefaultFieldPolicy()
	}
	return &CRMSink{client: client, policy: policy, now: time.Now}
}

// Configured reports whether the sink has a CRM client.
func (s *CRMSink) Configured() bool {
	return s != nil && s.client != nil
}

// Send posts inv to the CRM and returns the created object's ID.
func (s *CRMSink) Send(ctx context.Context, inv *model.Invoice) (string, error) {
	obj, err := s.client.CreateCompany(ctx, BuildCRMProperties(inv, s.policy, s.now()))
	if err != nil {
		return "", err
	}
	return obj.ID, nil
}
