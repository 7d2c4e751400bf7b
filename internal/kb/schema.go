package kb

import (
	"fmt"
	"os"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/hpungsan/triage/internal/errors"
)

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := dataFS.ReadFile("data/schema.json")
		if err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	})
	return schema, schemaErr
}

// Validate checks an encoded knowledge base document against the schema and
// returns a KB_INVALID error listing every violation.
func Validate(source string, data []byte, format Format) error {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return errors.NewKBInvalid(source, []string{err.Error()})
	}
	if problems := validateDocument(doc); len(problems) > 0 {
		return errors.NewKBInvalid(source, problems)
	}
	return nil
}

// ValidateFile is Validate for a file on disk.
func ValidateFile(path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewKBInvalid(path, []string{err.Error()})
	}
	return Validate(path, data, format)
}

func validateDocument(doc any) []string {
	s, err := compiledSchema()
	if err != nil {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return problems
}
