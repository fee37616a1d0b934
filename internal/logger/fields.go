package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"

	FieldPostingID = "posting_id"
	FieldCompany   = "company"
	FieldSource    = "source"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns fields that describe the AI provider and model.
func CommonFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}

// WithCommonFields attaches the common AI fields to the provided logger.
func WithCommonFields(logger *zap.Logger, provider, model string) *zap.Logger {
	return WithFields(logger, CommonFields(provider, model)...)
}

// PostingFields identifies a job posting in log entries. The ID is always
// present, even when empty, so entries stay greppable.
func PostingFields(id, company, source string) []zap.Field {
	fields := []zap.Field{zap.String(FieldPostingID, id)}
	return append(fields, StringFields(
		StringField{Key: FieldCompany, Value: company},
		StringField{Key: FieldSource, Value: source},
	)...)
}
