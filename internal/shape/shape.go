// Package shape turns free-form model text into typed, validated values.
//
// A shape is an ordinary Go struct whose `validate` tags declare required
// fields, enums and numeric ranges. Validation is all-or-nothing: a value
// is returned only when every rule holds.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies a validation failure.
type Kind string

const (
	// MalformedOutput means the text could not be decoded at all.
	MalformedOutput Kind = "malformed_output"
	// SchemaViolation means the text decoded but did not satisfy the shape.
	SchemaViolation Kind = "schema_violation"
)

// maxRaw bounds how much of the original text an Error carries.
const maxRaw = 500

// Error reports why raw text was rejected.
type Error struct {
	Kind  Kind
	Field string
	Raw   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("shape: %s at %s: %v", e.Kind, e.Field, e.Err)
	}
	return fmt.Sprintf("shape: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a shape Error of kind k.
func IsKind(err error, k Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == k
}

// Checker is implemented by shapes with rules that struct tags cannot
// express, such as cross-field constraints.
type Checker interface {
	Check() error
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Extract strips a surrounding code fence from model text. Only the first
// and last lines are inspected: a leading line starting with ``` (with an
// optional language tag) and a trailing ``` line are removed. Text without
// a leading fence is returned trimmed.
func Extract(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		// Single line such as ```{"a":1}``` or ```json{"a":1}```.
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSpace(strings.TrimSuffix(text, "```"))
		if rest := strings.TrimLeftFunc(text, isTagRune); rest != "" && rest != text {
			text = strings.TrimSpace(rest)
		}
		return text
	}
	text = text[nl+1:]

	trimmed := strings.TrimRight(text, " \t\r\n")
	if last := strings.LastIndexByte(trimmed, '\n'); last >= 0 && strings.TrimSpace(trimmed[last+1:]) == "```" {
		trimmed = trimmed[:last]
	} else {
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

func isTagRune(r rune) bool {
	return r == '_' || r == '-' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// Validate extracts, decodes and typechecks raw against the shape T.
func Validate[T any](raw string) (*T, error) {
	text := Extract(raw)

	var out T
	dec := json.NewDecoder(strings.NewReader(text))
	if err := dec.Decode(&out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &Error{Kind: SchemaViolation, Field: typeErr.Field, Raw: truncate(raw), Err: err}
		}
		return nil, &Error{Kind: MalformedOutput, Raw: truncate(raw), Err: err}
	}
	if dec.More() {
		return nil, &Error{Kind: MalformedOutput, Raw: truncate(raw), Err: errors.New("trailing data after document")}
	}

	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &Error{
				Kind:  SchemaViolation,
				Field: fieldPath(fe),
				Raw:   truncate(raw),
				Err:   fmt.Errorf("failed %q%s", fe.Tag(), param(fe)),
			}
		}
		return nil, &Error{Kind: SchemaViolation, Raw: truncate(raw), Err: err}
	}

	if c, ok := any(&out).(Checker); ok {
		if err := c.Check(); err != nil {
			var se *Error
			if errors.As(err, &se) {
				se.Raw = truncate(raw)
				return nil, se
			}
			return nil, &Error{Kind: SchemaViolation, Raw: truncate(raw), Err: err}
		}
	}
	return &out, nil
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func param(fe validator.FieldError) string {
	if fe.Param() == "" {
		return ""
	}
	return "=" + fe.Param()
}

func truncate(s string) string {
	if len(s) <= maxRaw {
		return s
	}
	return s[:maxRaw] + "…"
}
