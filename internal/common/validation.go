package common

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

// ValidationError is one rejected request field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// ValidationRule checks one field value and returns nil when it passes.
type ValidationRule func(fieldName string, value any) *ValidationError

// Validator collects field errors so a request reports all of them at once.
type Validator struct {
	issues []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value. Every failing rule is recorded.
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if issue := rule(fieldName, value); issue != nil {
			v.issues = append(v.issues, *issue)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.issues) > 0 }

func (v *Validator) Errors() []ValidationError { return v.issues }

// Error returns the collected failures as an InvalidInput AppError, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeInvalidInput, v.ErrorMessage(), nil)
}

// ErrorMessage joins the failures with "; ".
func (v *Validator) ErrorMessage() string {
	parts := make([]string, len(v.issues))
	for i, issue := range v.issues {
		parts[i] = issue.Error()
	}
	return strings.Join(parts, "; ")
}

func asString(value any) (string, bool) {
	switch s := value.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", true
		}
		return *s, true
	}
	return "", false
}

// Required rejects nil values and blank strings.
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := asString(value); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: s, Message: "is required"}
	}
	return nil
}

// MaxLength returns a rule rejecting strings longer than max runes.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := asString(value)
		if !ok || utf8.RuneCountInString(s) <= max {
			return nil
		}
		return &ValidationError{Field: fieldName, Value: s, Message: fmt.Sprintf("must be at most %d characters", max)}
	}
}

// Printable rejects strings with control characters, which never belong in a
// path, file name or job id.
func Printable(fieldName string, value any) *ValidationError {
	s, ok := asString(value)
	if !ok {
		return nil
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return &ValidationError{Field: fieldName, Value: s, Message: "must not contain control characters"}
	}
	return nil
}

// WithinRoot returns a rule rejecting paths that resolve outside root.
// Symlinks are resolved when the path exists. An empty root allows any path.
func WithinRoot(root string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := asString(value)
		if !ok || root == "" || s == "" {
			return nil
		}
		if !pathWithin(resolvePath(root), resolvePath(s)) {
			return &ValidationError{Field: fieldName, Value: s, Message: "must be inside the input root"}
		}
		return nil
	}
}

func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	// resolve the nearest existing ancestor so missing files still compare
	// against the real root
	rest := ""
	for dir := abs; ; {
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(real, rest)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}

func pathWithin(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SupportedDocument rejects file names whose extension the recognizer cannot read.
func SupportedDocument(fieldName string, value any) *ValidationError {
	s, ok := asString(value)
	if !ok || s == "" {
		return nil
	}
	if constants.MapExtToFormat(filepath.Ext(s)) == "" {
		return &ValidationError{
			Field:   fieldName,
			Value:   s,
			Message: fmt.Sprintf("has an unsupported document format, expected one of %v", constants.FileTypes),
		}
	}
	return nil
}

// ValidateAndReturnError converts collected failures into a gRPC
// InvalidArgument status.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
