package extract

import (
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// invoiceSchemaJSON constrains the shape of extractor output. Unknown keys are
// allowed so extractors can evolve ahead of the record type.
const invoiceSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "$defs": {
    "amount": {"type": ["number", "string", "null"]},
    "text": {"type": ["string", "null"]},
    "detail": {"type": ["object", "null"]}
  },
  "properties": {
    "vendor_name": {"$ref": "#/$defs/text"},
    "vendor_gst": {"$ref": "#/$defs/text"},
    "invoice_number": {"$ref": "#/$defs/text"},
    "invoice_date": {"$ref": "#/$defs/text"},
    "total_amount": {"$ref": "#/$defs/amount"},
    "tax_amount": {"$ref": "#/$defs/amount"},
    "subtotal": {"$ref": "#/$defs/amount"},
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "properties": {
          "description": {"$ref": "#/$defs/text"},
          "hsn_code": {"$ref": "#/$defs/text"},
          "quantity": {"$ref": "#/$defs/amount"},
          "unit_price": {"$ref": "#/$defs/amount"},
          "tax_rate": {"$ref": "#/$defs/amount"},
          "amount": {"$ref": "#/$defs/amount"}
        }
      }
    },
    "billing_address": {"$ref": "#/$defs/text"},
    "shipping_address": {"$ref": "#/$defs/text"},
    "payment_terms": {"$ref": "#/$defs/text"},
    "tax_details": {"$ref": "#/$defs/detail"},
    "discount_details": {"$ref": "#/$defs/detail"},
    "currency": {"$ref": "#/$defs/text"},
    "exchange_rate": {"$ref": "#/$defs/amount"},
    "due_date": {"$ref": "#/$defs/text"},
    "po_number": {"$ref": "#/$defs/text"},
    "recurring": {"type": ["boolean", "null"]},
    "risk_score": {"$ref": "#/$defs/amount"}
  }
}`

var invoiceSchema = jsonschema.MustCompileString("invoice.schema.json", invoiceSchemaJSON)
