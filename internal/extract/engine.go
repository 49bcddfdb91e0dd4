package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// Rule pulls one value out of the text. Rules targeting the same field are
// tried by ascending Priority (ties keep declaration order) and the first
// rule producing a value wins. Attachment rules are all evaluated; each one
// stands for one attachment slot.
type Rule struct {
	Name     string
	Field    string
	Pattern  *regexp.Regexp
	Priority int

	// Transform builds the value from the match; nil means textOf(1).
	Transform Transform
	// Occurrence selects the n-th match (1-based) for repeated blocks such as
	// the banking details of the first and second party. 0 means the first.
	Occurrence int
	// Slot is the attachment number for rules on constants.FieldAttachments.
	Slot int
}

// Engine runs the entity pass and the rule table over recognized text.
type Engine struct {
	rules      []Rule
	fields     []string
	classifier EntityClassifier
	guard      *fieldGuard
	// recordSchema validates a whole record; see Validate.
	recordSchema *jsonschema.Schema
	logger       *slog.Logger
}

// NewEngine sorts the rules by priority and compiles the per-field value
// schemas. A nil classifier marks every record's entities as unavailable.
func NewEngine(rules []Rule, classifier EntityClassifier, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	guard, err := newFieldGuard()
	if err != nil {
		return nil, err
	}

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	for i, r := range sorted {
		if r.Pattern == nil || r.Field == "" {
			return nil, fmt.Errorf("rule %d (%s): pattern and field are required", i, r.Name)
		}
	}
	sorted = groupByField(sorted)

	var fields []string
	seen := map[string]bool{}
	for _, r := range sorted {
		if !seen[r.Field] {
			seen[r.Field] = true
			fields = append(fields, r.Field)
		}
	}
	recordSchema, err := compileSchema("mem://record.json", RecordJSONSchema(fields))
	if err != nil {
		return nil, err
	}
	return &Engine{
		rules:        sorted,
		fields:       fields,
		classifier:   classifier,
		guard:        guard,
		recordSchema: recordSchema,
		logger:       logger,
	}, nil
}

// groupByField keeps fields in order of first appearance and sorts each
// field's rules by priority, ties in declaration order.
func groupByField(rules []Rule) []Rule {
	order := []string{}
	byField := map[string][]Rule{}
	for _, r := range rules {
		if _, ok := byField[r.Field]; !ok {
			order = append(order, r.Field)
		}
		byField[r.Field] = append(byField[r.Field], r)
	}
	out := make([]Rule, 0, len(rules))
	for _, f := range order {
		rs := byField[f]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Priority < rs[j].Priority })
		out = append(out, rs...)
	}
	return out
}

// Fields lists the target fields in table order.
func (e *Engine) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// ExtractFields builds a Record from text. Rule failures become diagnostics;
// the only error returned is context cancellation.
func (e *Engine) ExtractFields(ctx context.Context, text string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rec := newRecord()

	if e.classifier == nil {
		rec.EntitiesUnavailable = true
		rec.EntityError = "entity extraction unavailable: no classifier configured"
	} else if ents, err := e.classifier.Classify(ctx, text); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec.EntitiesUnavailable = true
		rec.EntityError = "entity extraction unavailable: " + err.Error()
		e.logger.Warn("entity classification failed, continuing with rules only", "error", err)
	} else {
		rec.Entities = ents
	}

	for _, r := range e.rules {
		isAttachment := r.Field == constants.FieldAttachments
		if _, done := rec.Fields[r.Field]; done && !isAttachment {
			continue
		}
		val, ok, err := e.apply(r, text)
		if err != nil {
			rec.Diagnostics = append(rec.Diagnostics, Diagnostic{Rule: r.Name, Field: r.Field, Message: err.Error()})
			e.logger.Debug("rule failed", "rule", r.Name, "field", r.Field, "error", err)
			continue
		}
		if !ok {
			continue
		}
		if isAttachment {
			rec.Attachments = append(rec.Attachments, Attachment{
				Number: strconv.Itoa(r.Slot),
				Title:  val,
				Type:   attachmentType(val),
			})
			continue
		}
		if err := e.guard.check(r.Field, val); err != nil {
			rec.Diagnostics = append(rec.Diagnostics, Diagnostic{Rule: r.Name, Field: r.Field, Message: err.Error()})
			continue
		}
		rec.Fields[r.Field] = val
	}
	rec.PenaltiesSummary = penaltiesSummary(rec.Fields)

	e.logger.Debug("fields extracted",
		"fields", len(rec.Fields),
		"attachments", len(rec.Attachments),
		"entities", rec.Entities.Count(),
		"diagnostics", len(rec.Diagnostics),
	)
	return rec, nil
}

// apply evaluates one rule. A panicking transform is reported as a
// RuleEvaluation error instead of taking the whole pass down.
func (e *Engine) apply(r Rule, text string) (val string, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			val, ok = "", false
			err = common.NewAppError(common.CodeRuleEvaluation, "rule "+r.Name, fmt.Errorf("panic: %v", p))
		}
	}()

	var m []string
	if r.Occurrence > 1 {
		all := r.Pattern.FindAllStringSubmatch(text, r.Occurrence)
		if len(all) < r.Occurrence {
			return "", false, nil
		}
		m = all[r.Occurrence-1]
	} else if m = r.Pattern.FindStringSubmatch(text); m == nil {
		return "", false, nil
	}

	tr := r.Transform
	if tr == nil {
		tr = textOf(1)
	}
	val, err = tr(m)
	if err != nil {
		return "", false, common.NewAppError(common.CodeRuleEvaluation, "rule "+r.Name, err)
	}
	val = strings.TrimSpace(val)
	return val, val != "", nil
}
