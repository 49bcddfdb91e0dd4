package nlp

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/joseph-ayodele/contracts-tracker/internal/common"
)

// Category is a coarse entity label.
type Category string

const (
	ORG    Category = "ORG"
	DATE   Category = "DATE"
	MONEY  Category = "MONEY"
	PERSON Category = "PERSON"
)

// Entities buckets distinct spans by category, in order of first appearance.
type Entities map[Category][]string

// Count returns the number of spans across all categories.
func (e Entities) Count() int {
	n := 0
	for _, v := range e {
		n += len(v)
	}
	return n
}

const months = `(?:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)`

var defaultPatterns = map[Category][]string{
	ORG: {
		`(?:ООО|ОАО|ЗАО|ПАО|АО|ФГУП|МУП|ГУП)\s*«[^»\n]+»(?:[^«»\n]*»)?`,
		`(?:Общество с ограниченной ответственностью|Публичное акционерное общество|Акционерное общество)\s*«[^»\n]+»(?:[^«»\n]*»)?`,
		`Индивидуальный предприниматель\s+[А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+){0,2}`,
	},
	DATE: {
		`«\s*\d{1,2}\s*»\s*` + months + `\s+\d{4}`,
		`\d{1,2}\s+` + months + `\s+\d{4}`,
		`\d{2}\.\d{2}\.\d{4}`,
	},
	MONEY: {
		`\d[\d \x{00a0}]*(?:[.,]\d{1,2})?\s*(?:руб(?:лей|ля|ль)?\.?|₽)`,
	},
	PERSON: {
		`[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+(?:вича|вны|ича|ичны|вич|вна|ична|ич)`,
		`[А-ЯЁ][а-яё]+\s+[А-ЯЁ]\.\s?[А-ЯЁ]\.`,
	},
}

// Heuristic is a pattern-based entity classifier. It must be loaded before use.
type Heuristic struct {
	logger *slog.Logger

	mu       sync.RWMutex
	patterns map[Category][]*regexp.Regexp
}

func NewHeuristic(logger *slog.Logger) *Heuristic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Heuristic{logger: logger}
}

// Load compiles the category patterns.
func (h *Heuristic) Load(_ context.Context) error {
	compiled := make(map[Category][]*regexp.Regexp, len(defaultPatterns))
	for cat, pats := range defaultPatterns {
		for _, p := range pats {
			re, err := regexp.Compile(p)
			if err != nil {
				return common.EngineUnavailable("entity classifier: bad pattern for "+string(cat), err)
			}
			compiled[cat] = append(compiled[cat], re)
		}
	}
	h.mu.Lock()
	h.patterns = compiled
	h.mu.Unlock()
	h.logger.Info("entity classifier loaded", "categories", len(compiled))
	return nil
}

// Close releases the compiled patterns; Classify fails afterwards.
func (h *Heuristic) Close() error {
	h.mu.Lock()
	h.patterns = nil
	h.mu.Unlock()
	return nil
}

// Classify buckets spans of text into categories.
func (h *Heuristic) Classify(ctx context.Context, text string) (Entities, error) {
	h.mu.RLock()
	patterns := h.patterns
	h.mu.RUnlock()
	if patterns == nil {
		return nil, common.EngineUnavailable("entity classifier not loaded", nil)
	}

	out := make(Entities, len(patterns))
	for cat, res := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		type span struct {
			pos  int
			text string
		}
		var spans []span
		for _, re := range res {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				spans = append(spans, span{loc[0], collapseSpaces(text[loc[0]:loc[1]])})
			}
		}
		sort.SliceStable(spans, func(i, j int) bool { return spans[i].pos < spans[j].pos })
		seen := make(map[string]struct{}, len(spans))
		for _, s := range spans {
			if _, dup := seen[s.text]; dup {
				continue
			}
			seen[s.text] = struct{}{}
			out[cat] = append(out[cat], s.text)
		}
	}
	return out, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
