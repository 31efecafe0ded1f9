package domain

type FieldType string

const (
	FieldTypeText   FieldType = "text"
	FieldTypeNumber FieldType = "number"
	FieldTypeDate   FieldType = "date"
)

// FieldSpec describes one expected invoice field. The schema is a closed,
// ordered set: extraction and validation never operate outside it.
type FieldSpec struct {
	Name     string    `json:"name"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	// Weight of the field in the document-level confidence aggregate.
	Weight float64 `json:"weight"`
}

type Schema struct {
	Fields []FieldSpec `json:"fields"`
}

func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

func (s Schema) RequiredFields() []FieldSpec {
	var out []FieldSpec
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

const (
	FieldVendorName    = "vendor_name"
	FieldInvoiceNumber = "invoice_number"
	FieldInvoiceDate   = "invoice_date"
	FieldTotalAmount   = "total_amount"
	FieldVATAmount     = "vat_amount"
	FieldVATPercentage = "vat_percentage"
	FieldIBAN          = "iban"
	FieldDescription   = "description"
)

// InvoiceSchema is the field set pushed to the accounting platform.
func InvoiceSchema() Schema {
	return Schema{Fields: []FieldSpec{
		{Name: FieldVendorName, Type: FieldTypeText, Required: true, Weight: 1},
		{Name: FieldInvoiceNumber, Type: FieldTypeText, Required: true, Weight: 1},
		{Name: FieldInvoiceDate, Type: FieldTypeDate, Required: true, Weight: 1},
		{Name: FieldTotalAmount, Type: FieldTypeNumber, Required: true, Weight: 2},
		{Name: FieldVATAmount, Type: FieldTypeNumber, Required: false, Weight: 1},
		{Name: FieldVATPercentage, Type: FieldTypeNumber, Required: false, Weight: 0.5},
		{Name: FieldIBAN, Type: FieldTypeText, Required: false, Weight: 0.5},
		{Name: FieldDescription, Type: FieldTypeText, Required: false, Weight: 0.5},
	}}
}
