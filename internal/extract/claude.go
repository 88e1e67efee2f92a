package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/invoice-intake/internal/model"
	"github.com/sells-group/invoice-intake/pkg/anthropic"
)

const claudeSystemPrompt = `You extract structured data from invoices.
Reply with a single JSON object and nothing else. Use these keys when the
document shows a value: vendor_name, vendor_gst, invoice_number, invoice_date,
total_amount, tax_amount, subtotal, items (array of objects with description,
hsn_code, quantity, unit_price, tax_rate, amount), billing_address,
shipping_address, payment_terms, tax_details, discount_details, notes,
currency, due_date, po_number, vendor_contact, payment_method, bank_details.
Omit keys with no value. Amounts are plain numbers. If the document is not an
invoice, reply with {}.`

const claudeUserPrompt = "Extract the invoice fields from the attached document."

var mediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// ClaudeExtractor sends the document to the Anthropic Messages API and
// decodes the JSON the model returns.
type ClaudeExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewClaudeExtractor creates a ClaudeExtractor using client.
func NewClaudeExtractor(client anthropic.Client, model string, maxTokens int64) *ClaudeExtractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ClaudeExtractor{client: client, model: model, maxTokens: maxTokens}
}

// Extract attaches the document to a single extraction prompt.
func (c *ClaudeExtractor) Extract(ctx context.Context, path string) (*model.Invoice, error) {
	mediaType, ok := mediaTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, eris.Errorf("extract: unsupported document type %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read %s", path)
	}

	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: claudeSystemPrompt, CacheControl: &anthropic.CacheControl{TTL: "1h"}},
		},
		Messages: []anthropic.Message{{
			Role:        "user",
			Content:     claudeUserPrompt,
			Attachments: []anthropic.Attachment{{MediaType: mediaType, Data: data}},
		}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: claude request")
	}

	resp.Usage.LogCost(c.model, "extract")

	return Decode([]byte(resp.Text()))
}
