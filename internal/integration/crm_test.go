package integration

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/pkg/hubspot"
	"github.com/sells-group/invoice-intake/pkg/hubspot/mocks"
)

var crmNow = time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

func policyWith(fields ...string) FieldPolicy {
	p := DefaultFieldPolicy()
	for _, f := range fields {
		p[f] = true
	}
	return p
}

func TestBuildCRMProperties_Basics(t *testing.T) {
	props := BuildCRMProperties(&model.Invoice{
		VendorName:    "Acme",
		InvoiceNumber: "INV-1",
		TotalAmount:   100,
	}, DefaultFieldPolicy(), crmNow)

	assert.Equal(t, map[string]string{
		"company_name":   "Acme",
		"total_amount":   "100",
		"invoice_status": "processed",
	}, props)
}

func TestBuildCRMProperties_OmitsEmptyCompanyName(t *testing.T) {
	props := BuildCRMProperties(&model.Invoice{}, DefaultFieldPolicy(), crmNow)
	assert.NotContains(t, props, "company_name")
	assert.Equal(t, "0", props["total_amount"])
	assert.Equal(t, "processed", props["invoice_status"])
}

func TestBuildCRMProperties_PolicyAndEmptiness(t *testing.T) {
	inv := &model.Invoice{
		VendorName:    "Acme",
		InvoiceNumber: "INV-9",
		InvoiceDate:   "",
		Notes:         "net 30",
	}
	props := BuildCRMProperties(inv, policyWith("invoice_number", "invoice_date", "notes"), crmNow)

	assert.Equal(t, "INV-9", props["invoice_number"])
	assert.Equal(t, "net 30", props["notes"])
	assert.NotContains(t, props, "invoice_date", "enabled but empty")
	assert.NotContains(t, props, "vendor_gst", "disabled")
}

func TestBuildCRMProperties_CompositeFields(t *testing.T) {
	inv := &model.Invoice{
		Items:      []model.LineItem{{Description: "Widget", Amount: 50}},
		TaxDetails: map[string]any{"cgst": 9.0},
	}
	props := BuildCRMProperties(inv, policyWith("invoice_items", "tax_details", "discount_details", "audit_trail", "line_items_count"), crmNow)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(props["invoice_items"]), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Widget", items[0]["description"])

	assert.JSONEq(t, `{"cgst": 9}`, props["tax_details"])
	assert.Equal(t, "{}", props["discount_details"])
	assert.Equal(t, "1", props["line_items_count"])
	assert.JSONEq(t, `[{"action":"data_extracted","timestamp":"2026-05-06T07:08:09Z","user":"system"}]`, props["audit_trail"])
}

func TestBuildCRMProperties_SynthesizedDefaults(t *testing.T) {
	props := BuildCRMProperties(&model.Invoice{}, policyWith(PolicyFields...), crmNow)

	assert.Equal(t, "INR", props["currency"])
	assert.Equal(t, "1", props["exchange_rate"])
	assert.Equal(t, "[]", props["invoice_items"])
	assert.Equal(t, "0", props["line_items_count"])
	assert.Equal(t, "completed", props["processing_status"])
	assert.Equal(t, "pending", props["approval_status"])
	assert.Equal(t, "pending", props["payment_status"])
	assert.Equal(t, "invoice_scanner", props["created_by"])
	assert.Equal(t, "invoice_scanner", props["last_modified_by"])
	assert.Equal(t, "automated_processing", props["tags"])
	assert.Equal(t, "false", props["recurring"])
	assert.Equal(t, "data_extracted", props["workflow_stage"])
	assert.Equal(t, "0", props["escalation_level"])
	assert.Equal(t, "0", props["risk_score"])
	assert.Equal(t, "pending_review", props["compliance_status"])
	assert.Equal(t, "invoice_scanner_api", props["integration_source"])
	assert.NotContains(t, props, "custom_field_1")
	assert.NotContains(t, props, "po_number")
}

func TestCRMSink_Send(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateCompany", mock.Anything, mock.MatchedBy(func(p map[string]string) bool {
		return p["company_name"] == "Acme" && p["total_amount"] == "100"
	})).Return(&hubspot.Object{ID: "77"}, nil)

	id, err := NewCRMSink(client, nil).Send(context.Background(), &model.Invoice{VendorName: "Acme", TotalAmount: 100})
	require.NoError(t, err)
	assert.Equal(t, "77", id)
}

func TestCRMSink_SendError(t *testing.T) {
	client := mocks.NewMockClient(t)
	client.On("CreateCompany", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewCRMSink(client, nil).Send(context.Background(), &model.Invoice{})
	require.Error(t, err)
}

func TestCRMSink_Configured(t *testing.T) {
	assert.False(t, NewCRMSink(nil, nil).Configured())
	var nilSink *CRMSink
	assert.False(t, nilSink.Configured())
	assert.True(t, NewCRMSink(mocks.NewMockClient(t), nil).Configured())
}
