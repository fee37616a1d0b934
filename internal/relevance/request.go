package relevance

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/*.json
var schemaFiles embed.FS

// Request is a self-contained match call: a profile, its exclusions and the
// postings to rank.
type Request struct {
	Skills         SkillProfile  `json:"skills"`
	ExcludedSkills ExclusionList `json:"excluded_skills,omitempty"`
	Jobs           []JobPosting  `json:"jobs"`
}

// DecodeRequest parses and validates a JSON match request. Unknown keys and
// non-string entries are reported as *InputError; malformed JSON is a plain
// error.
func DecodeRequest(data []byte) (*Request, error) {
	if err := validateDocument("schema/request.json", data); err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// DecodePostings parses and validates a JSON array of postings.
func DecodePostings(data []byte) ([]JobPosting, error) {
	if err := validateDocument("schema/postings.json", data); err != nil {
		return nil, err
	}

	var postings []JobPosting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("decode postings: %w", err)
	}
	return postings, nil
}

func validateDocument(schemaPath string, data []byte) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	schema, err := schemaFiles.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("read schema %s: %w", schemaPath, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", schemaPath, err)
	}
	if result.Valid() {
		return nil
	}

	errs := result.Errors()
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Field() < errs[j].Field()
	})
	return toInputError(errs[0])
}

func toInputError(desc gojsonschema.ResultError) *InputError {
	field := desc.Field()
	if field == "(root)" {
		field = ""
	}

	kind := KindType
	if desc.Type() == "additional_property_not_allowed" {
		kind = KindUnknownField
		if property, ok := desc.Details()["property"].(string); ok {
			field = strings.TrimPrefix(field+"."+property, ".")
		}
	}

	return &InputError{
		Kind:   kind,
		Field:  field,
		Reason: desc.Description(),
	}
}
