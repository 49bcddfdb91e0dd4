package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

const (
	patDate     = `^\d{4}-\d{2}-\d{2}$`
	patDecimal  = `^\d+(\.\d+)?$`
	patInteger  = `^\d{1,3}$`
	patINN      = `^(\d{10}|\d{12})$`
	patOGRN     = `^(\d{13}|\d{15})$`
	patAccount  = `^\d{20}$`
	patBIK      = `^\d{9}$`
	patCadastre = `^\d{2}:\d{2}:\d{6,7}:\d+$`
)

// fieldPatterns constrains the normalized value of each field. Fields not
// listed here are free text.
var fieldPatterns = map[string]string{
	constants.FieldContractDate:  patDate,
	constants.FieldPermitDate:    patDate,
	constants.FieldWorkStartDate: patDate,
	constants.FieldDeadline:      patDate,

	constants.FieldAmountInclVAT:    patDecimal,
	constants.FieldVATAmount:        patDecimal,
	constants.FieldVATRate:          patDecimal,
	constants.FieldRetention:        patDecimal,
	constants.FieldLandArea:         patDecimal,
	constants.FieldBuildingArea:     patDecimal,
	constants.FieldPenaltyFirstWeek: patDecimal,
	constants.FieldPenaltyAfterWeek: patDecimal,
	constants.FieldLatePayment:      patDecimal,
	constants.FieldDocumentPenalty:  patDecimal,
	constants.FieldSitePenalty:      patDecimal,

	constants.FieldPaymentTerms:   patInteger,
	constants.FieldWarrantyMonths: patInteger,

	constants.FieldCustomerINN:    patINN,
	constants.FieldContractorINN:  patINN,
	constants.FieldCustomerOGRN:   patOGRN,
	constants.FieldContractorOGRN: patOGRN,

	constants.FieldCustomerBankAccount:   patAccount,
	constants.FieldContractorBankAccount: patAccount,
	constants.FieldCustomerCorrAccount:   patAccount,
	constants.FieldContractorCorrAccount: patAccount,
	constants.FieldCustomerBIK:           patBIK,
	constants.FieldContractorBIK:         patBIK,

	constants.FieldCadastralNumber: patCadastre,
}

func fieldSchema(field string) map[string]any {
	if p, ok := fieldPatterns[field]; ok {
		return map[string]any{"type": "string", "pattern": p}
	}
	return map[string]any{"type": "string", "minLength": 1, "maxLength": 1000}
}

var attachmentTypes = []string{
	constants.AttachmentEstimate, constants.AttachmentSchedule, constants.AttachmentProtocol,
	constants.AttachmentForm, constants.AttachmentTechnicalMap, constants.AttachmentDrawing,
	constants.AttachmentAct, constants.AttachmentProject, constants.AttachmentOther,
}

// RecordJSONSchema describes the JSON form of a Record produced with the
// given field set.
func RecordJSONSchema(fields []string) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		if f == constants.FieldAttachments {
			continue
		}
		props[f] = fieldSchema(f)
	}
	return map[string]any{
		"$schema":  "https://json-schema.org/draft/2020-12/schema",
		"title":    "ContractRecord",
		"type":     "object",
		"required": []string{"fields", "attachments"},
		"properties": map[string]any{
			"fields": map[string]any{
				"type":                 "object",
				"properties":           props,
				"additionalProperties": false,
			},
			"attachments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"number", "title", "type"},
					"properties": map[string]any{
						"number": map[string]any{"type": "string", "pattern": `^\d+$`},
						"title":  map[string]any{"type": "string", "minLength": 1},
						"type":   map[string]any{"type": "string", "enum": attachmentTypes},
					},
				},
			},
			"penalties_summary":    map[string]any{"type": "string"},
			"entities":             map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "array", "items": map[string]any{"type": "string"}}},
			"entities_unavailable": map[string]any{"type": "boolean"},
			"entity_error":         map[string]any{"type": "string"},
			"diagnostics": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"rule", "field", "message"},
				},
			},
		},
	}
}

func compileSchema(url string, doc map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %s: %w", url, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", url, err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", url, err)
	}
	return s, nil
}

// fieldGuard rejects normalized values that do not have the shape their
// field promises (a date that is not YYYY-MM-DD, an INN with 11 digits).
type fieldGuard struct {
	schemas  map[string]*jsonschema.Schema
	freeText *jsonschema.Schema
}

func newFieldGuard() (*fieldGuard, error) {
	g := &fieldGuard{schemas: make(map[string]*jsonschema.Schema, len(fieldPatterns))}
	for field := range fieldPatterns {
		s, err := compileSchema("mem://fields/"+field+".json", fieldSchema(field))
		if err != nil {
			return nil, err
		}
		g.schemas[field] = s
	}
	s, err := compileSchema("mem://fields/free-text.json", fieldSchema(""))
	if err != nil {
		return nil, err
	}
	g.freeText = s
	return g, nil
}

func (g *fieldGuard) check(field, value string) error {
	s, ok := g.schemas[field]
	if !ok {
		s = g.freeText
	}
	if err := s.Validate(value); err != nil {
		return fmt.Errorf("value %q rejected: %w", value, err)
	}
	return nil
}

// Validate checks rec against the record schema of the engine's field set.
func (e *Engine) Validate(rec *Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := e.recordSchema.Validate(v); err != nil {
		return fmt.Errorf("record schema: %w", err)
	}
	return nil
}
