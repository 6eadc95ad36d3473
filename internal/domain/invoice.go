package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Ledger column names, in canonical order.
const (
	ColumnDate                = "date"
	ColumnVendor              = "vendor"
	ColumnTotal               = "total"
	ColumnCurrency            = "currency"
	ColumnSourceFilename      = "source_filename"
	ColumnDestinationFilename = "destination_filename"
)

// LedgerColumns is the canonical ledger schema.
var LedgerColumns = []string{
	ColumnDate,
	ColumnVendor,
	ColumnTotal,
	ColumnCurrency,
	ColumnSourceFilename,
	ColumnDestinationFilename,
}

// InvoiceFields holds the values extracted from an invoice image.
// A nil pointer or an invalid Total means the model could not read the field.
type InvoiceFields struct {
	Date     *string
	Vendor   *string
	Total    decimal.NullDecimal
	Currency *string
}

// fieldAliases maps canonical field names to the keys accepted from the model.
var fieldAliases = map[string][]string{
	ColumnDate:     {"date"},
	ColumnVendor:   {"vendor", "vendeur"},
	ColumnTotal:    {"total", "montant"},
	ColumnCurrency: {"currency", "devise"},
}

// ParseInvoiceFields decodes the JSON text returned by the model.
// It accepts an object, or an array holding exactly one object.
func ParseInvoiceFields(data []byte) (*InvoiceFields, error) {
	data = bytes.TrimSpace(data)

	var obj map[string]json.RawMessage
	if len(data) > 0 && data[0] == '[' {
		var arr []map[string]json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
		if len(arr) != 1 {
			return nil, fmt.Errorf("decode fields: expected one object, got %d", len(arr))
		}
		obj = arr[0]
	} else if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}

	if obj == nil {
		return nil, fmt.Errorf("decode fields: response is not an object")
	}

	fields := &InvoiceFields{
		Date:     stringField(lookup(obj, ColumnDate)),
		Vendor:   stringField(lookup(obj, ColumnVendor)),
		Currency: stringField(lookup(obj, ColumnCurrency)),
		Total:    totalField(lookup(obj, ColumnTotal)),
	}

	return fields, nil
}

func lookup(obj map[string]json.RawMessage, field string) json.RawMessage {
	for _, key := range fieldAliases[field] {
		if raw, ok := obj[key]; ok {
			return raw
		}
	}
	return nil
}

func stringField(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return &s
	}

	// Numbers are kept as their literal text, anything else is unreadable.
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		s := n.String()
		return &s
	}

	return nil
}

func totalField(raw json.RawMessage) decimal.NullDecimal {
	if len(raw) == 0 {
		return decimal.NullDecimal{}
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.NullDecimal{}
		}
		return decimal.NewNullDecimal(d)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}

	return decimal.NullDecimal{}
}

// ParseAmount reads an amount written by a human: "42,50 €", "1 234.00",
// "$1,234.56". The last separator is taken as the decimal point.
func ParseAmount(s string) decimal.NullDecimal {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return decimal.NullDecimal{}
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NewNullDecimal(d)
}

// InvoiceRecord is one ledger row: the extracted fields plus where the
// image came from and where it was archived.
type InvoiceRecord struct {
	InvoiceFields
	SourceFilename      string
	DestinationFilename string
}

// NewInvoiceRecord creates a record for an archived invoice.
func NewInvoiceRecord(fields InvoiceFields, sourceFilename, destinationFilename string) *InvoiceRecord {
	return &InvoiceRecord{
		InvoiceFields:       fields,
		SourceFilename:      sourceFilename,
		DestinationFilename: destinationFilename,
	}
}

// Values returns the record as ledger cells keyed by column. Null fields
// are empty cells.
func (r *InvoiceRecord) Values() map[string]string {
	total := ""
	if r.Total.Valid {
		total = r.Total.Decimal.String()
	}

	return map[string]string{
		ColumnDate:                deref(r.Date),
		ColumnVendor:              deref(r.Vendor),
		ColumnTotal:               total,
		ColumnCurrency:            deref(r.Currency),
		ColumnSourceFilename:      r.SourceFilename,
		ColumnDestinationFilename: r.DestinationFilename,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
