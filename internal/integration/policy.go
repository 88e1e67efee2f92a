package integration

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// PolicyFields lists every optional CRM property in payload order.
var PolicyFields = []string{
	"invoice_number", "invoice_date", "vendor_gst", "invoice_items",
	"billing_address", "shipping_address", "payment_terms", "tax_details",
	"discount_details", "notes", "currency", "exchange_rate", "due_date",
	"po_number", "vendor_contact", "line_items_count", "attachment_url",
	"processing_status", "approval_status", "payment_status", "created_by",
	"last_modified_by", "tags", "department", "project_code",
	"vendor_category", "payment_method", "bank_details", "recurring",
	"parent_invoice", "workflow_stage", "escalation_level", "risk_score",
	"compliance_status", "audit_trail", "integration_source",
	"custom_field_1", "custom_field_2", "custom_field_3", "custom_field_4",
	"custom_field_5",
}

// FieldPolicy decides which optional properties are sent to the CRM.
type FieldPolicy map[string]bool

// DefaultFieldPolicy transmits no optional fields.
func DefaultFieldPolicy() FieldPolicy {
	p := make(FieldPolicy, len(PolicyFields))
	for _, f := range PolicyFields {
		p[f] = false
	}
	return p
}

// Enabled reports whether field is transmitted.
func (p FieldPolicy) Enabled(field string) bool {
	return p[field]
}

// EnabledFields returns the transmitted fields, sorted.
func (p FieldPolicy) EnabledFields() []string {
	var out []string
	for f, on := range p {
		if on {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

type policyFile struct {
	Fields map[string]bool `yaml:"fields"`
}

// LoadFieldPolicy reads a YAML document of the form
//
//	fields:
//	  invoice_number: true
//	  currency: true
//
// over the defaults. An empty path returns the defaults.
func LoadFieldPolicy(path string) (FieldPolicy, error) {
	p := DefaultFieldPolicy()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "integration: read field policy %s", path)
	}

	var doc policyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "integration: parse field policy %s", path)
	}

	var unknown []string
	for f, on := range doc.Fields {
		if _, ok := p[f]; !ok {
			unknown = append(unknown, f)
			continue
		}
		p[f] = on
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, eris.Errorf("integration: unknown field policy entries: %s", strings.Join(unknown, ", "))
	}
	return p, nil
}
