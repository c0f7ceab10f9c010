package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema — скомпилированная JSON Schema для input executor'а.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// CompileSchema компилирует схему из JSON-строки.
func CompileSchema(name, src string) (*Schema, error) {
	url := name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// MustCompileSchema — CompileSchema для схем, зашитых в код.
func MustCompileSchema(name, src string) *Schema {
	s, err := CompileSchema(name, src)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate проверяет input по схеме.
//
// input сначала проходит через JSON: валидатор понимает только
// типы encoding/json (float64, []any, map[string]any).
func (s *Schema) Validate(input map[string]any) error {
	if input == nil {
		input = map[string]any{}
	}
	b, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("%w: %s: input is not JSON-serializable: %v", ErrInvalidInput, s.name, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, s.name, err)
	}

	if err := s.compiled.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s: %s", ErrInvalidInput, s.name, describe(ve))
		}
		return fmt.Errorf("%w: %s: %v", ErrInvalidInput, s.name, err)
	}
	return nil
}

// describe собирает сообщения листовых ошибок в одну строку:
// "missing properties: 'url'; /timeout_sec: expected number, but got string".
func describe(ve *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msg := e.Message
			if e.InstanceLocation != "" {
				msg = e.InstanceLocation + ": " + msg
			}
			msgs = append(msgs, msg)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
