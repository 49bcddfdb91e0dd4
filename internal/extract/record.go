package extract

import (
	"strings"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
)

// Attachment is one "Приложение №N" entry of the contract.
type Attachment struct {
	Number string `json:"number"`
	Title  string `json:"title"`
	Type   string `json:"type"`
}

// Diagnostic records a rule that failed or produced a rejected value.
type Diagnostic struct {
	Rule    string `json:"rule"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Record is the structured output of field extraction. Every field is
// optional and independent of the others.
type Record struct {
	Fields              map[string]string `json:"fields"`
	Attachments         []Attachment      `json:"attachments"`
	PenaltiesSummary    string            `json:"penalties_summary,omitempty"`
	Entities            nlp.Entities      `json:"entities,omitempty"`
	EntitiesUnavailable bool              `json:"entities_unavailable,omitempty"`
	EntityError         string            `json:"entity_error,omitempty"`
	Diagnostics         []Diagnostic      `json:"diagnostics,omitempty"`
}

func newRecord() *Record {
	return &Record{
		Fields:      make(map[string]string),
		Attachments: []Attachment{},
	}
}

// Get returns a field value and whether it was extracted.
func (r *Record) Get(field string) (string, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// penaltiesSummary renders the penalty fields as one human-readable line.
func penaltiesSummary(fields map[string]string) string {
	var parts []string
	if v, ok := fields[constants.FieldPenaltyFirstWeek]; ok {
		parts = append(parts, "Первые 7 дней: "+v+"%")
	}
	if v, ok := fields[constants.FieldPenaltyAfterWeek]; ok {
		parts = append(parts, "После 7 дней: "+v+"%")
	}
	if v, ok := fields[constants.FieldDocumentPenalty]; ok {
		parts = append(parts, "За документы: "+v+" руб.")
	}
	if v, ok := fields[constants.FieldSitePenalty]; ok {
		parts = append(parts, "За нарушения на стройплощадке: "+v+" руб.")
	}
	return strings.Join(parts, "; ")
}
