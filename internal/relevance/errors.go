package relevance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput matches every InputError via errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// ErrorKind classifies caller contract violations.
type ErrorKind int

const (
	// KindType is a value of the wrong type, or a non-collection where a
	// collection is expected.
	KindType ErrorKind = iota + 1
	// KindValue is a blank skill or exclusion keyword.
	KindValue
	// KindUnknownField is a posting or request key that is not part of the schema.
	KindUnknownField
)

func (k ErrorKind) String() string {
	switch k {
	case KindType:
		return "type"
	case KindValue:
		return "value"
	case KindUnknownField:
		return "unknown_field"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// InputError reports a malformed profile, exclusion list or posting batch.
// The whole call fails; nothing is scored.
type InputError struct {
	Kind   ErrorKind
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s error: %s", ErrInvalidInput, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s error at %s: %s", ErrInvalidInput, e.Kind, e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// StringsFrom converts a loosely typed value, as produced by YAML or JSON
// decoding into interface values, into a string list. nil yields nil.
func StringsFrom(field string, v any) ([]string, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return append([]string(nil), typed...), nil
	case []any:
		result := make([]string, 0, len(typed))
		for i, item := range typed {
			s, ok := item.(string)
			if !ok {
				return nil, &InputError{
					Kind:   KindType,
					Field:  fmt.Sprintf("%s[%d]", field, i),
					Reason: fmt.Sprintf("expected string, got %T", item),
				}
			}
			result = append(result, s)
		}
		return result, nil
	default:
		return nil, &InputError{
			Kind:   KindType,
			Field:  field,
			Reason: fmt.Sprintf("expected a list of strings, got %T", v),
		}
	}
}

func validateEntries(field string, entries []string) error {
	for i, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			return &InputError{
				Kind:   KindValue,
				Field:  fmt.Sprintf("%s[%d]", field, i),
				Reason: "must not be blank",
			}
		}
	}
	return nil
}
