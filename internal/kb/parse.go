package kb

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/triage/internal/errors"
)

//go:embed data/symptoms.json data/schema.json
var dataFS embed.FS

// Format is a knowledge base document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseOptions controls how loosely typed fields are read.
type ParseOptions struct {
	// DefaultWeight is used when a symptom's weight is missing, not a number, or negative.
	DefaultWeight float64

	// DefaultRedFlag is used when a symptom's redFlag is missing or not a boolean.
	DefaultRedFlag bool

	// Strict rejects documents that fail schema validation instead of applying fallbacks.
	Strict bool
}

// DefaultParseOptions returns weight 1.0, redFlag false, lenient parsing.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{DefaultWeight: 1.0}
}

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", errors.NewInvalidRequest(fmt.Sprintf("unsupported knowledge base extension: %q", filepath.Ext(path)))
	}
}

// LoadFile reads and parses a knowledge base file.
func LoadFile(path string, opts ParseOptions) (*KnowledgeBase, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewKBInvalid(path, []string{err.Error()})
	}
	return parse(path, data, format, opts)
}

// Parse builds a knowledge base from an encoded document. The document is either
// {"symptoms": [...]} or a bare array of symptoms.
func Parse(data []byte, format Format, opts ParseOptions) (*KnowledgeBase, error) {
	return parse(string(format)+" document", data, format, opts)
}

// Default returns the embedded demo knowledge base.
func Default() *KnowledgeBase {
	data, err := dataFS.ReadFile("data/symptoms.json")
	if err != nil {
		panic(fmt.Sprintf("kb: embedded symptoms missing: %v", err))
	}
	k, err := parse("embedded", data, FormatJSON, DefaultParseOptions())
	if err != nil {
		panic(fmt.Sprintf("kb: embedded symptoms invalid: %v", err))
	}
	return k
}

func parse(source string, data []byte, format Format, opts ParseOptions) (*KnowledgeBase, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, errors.NewKBInvalid(source, []string{err.Error()})
	}

	if problems := validateDocument(doc); len(problems) > 0 {
		if opts.Strict {
			return nil, errors.NewKBInvalid(source, problems)
		}
		slog.Warn("knowledge base does not match schema, applying fallbacks", "source", source, "problems", len(problems))
	}

	symptoms := symptomsFrom(doc, opts)
	if len(symptoms) == 0 {
		return nil, errors.NewKBInvalid(source, []string{"no symptoms defined"})
	}
	return New(symptoms), nil
}

// decodeDocument decodes JSON or YAML into generic values and wraps a bare
// array as {"symptoms": [...]}.
func decodeDocument(data []byte, format Format) (any, error) {
	var doc any
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	if list, ok := doc.([]any); ok {
		doc = map[string]any{"symptoms": list}
	}
	return doc, nil
}

func symptomsFrom(doc any, opts ParseOptions) []Symptom {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	list, ok := root["symptoms"].([]any)
	if !ok {
		return nil
	}

	out := make([]Symptom, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		code := stringField(entry, "code")
		if code == "" {
			continue
		}
		out = append(out, Symptom{
			Code:     code,
			Label:    stringField(entry, "label"),
			Category: stringField(entry, "category"),
			Weight:   floatField(entry, "weight", opts.DefaultWeight),
			RedFlag:  boolField(entry, "redFlag", opts.DefaultRedFlag),
			Aliases:  stringList(entry["aliases"]),
		})
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func floatField(m map[string]any, key string, fallback float64) float64 {
	var v float64
	switch n := m[key].(type) {
	case float64:
		v = n
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return fallback
		}
		v = parsed
	default:
		return fallback
	}
	if v < 0 {
		return fallback
	}
	return v
}

func boolField(m map[string]any, key string, fallback bool) bool {
	switch b := m[key].(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return fallback
		}
		return parsed
	default:
		return fallback
	}
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
