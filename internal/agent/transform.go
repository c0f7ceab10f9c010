package agent

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
)

// configMappings — ключ input с шаблонами transform'а.
const configMappings = "mappings"

var transformSchema = MustCompileSchema(TaskTypeTransform, `{
	"type": "object",
	"properties": {
		"mappings": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	}
}`)

// TransformExecutor — перекладывает данные контекста workflow.
//
// Output — копия input без mappings, плюс отрендеренные mappings.
// Шаблоны видят весь input:
//
//	{
//	    "artist_name": " jane doe ",
//	    "mappings": {
//	        "page_title": "{{ .artist_name | trim | title }}",
//	        "content": "{{ .wiki_content }}"
//	    }
//	}
//
// Outputs:
//
//	{"artist_name": " jane doe ", "page_title": "Jane Doe", "content": "..."}
//
// Результат рендеринга парсится как JSON, если это возможно ("42" → 42).
type TransformExecutor struct {
	baseAgent
}

// NewTransformExecutor создаёт TransformExecutor.
func NewTransformExecutor(logger *slog.Logger) *TransformExecutor {
	return &TransformExecutor{baseAgent: newBaseAgent(TaskTypeTransform, logger)}
}

// ValidateInput проверяет, что mappings — объект строк.
func (e *TransformExecutor) ValidateInput(input map[string]any) error {
	return transformSchema.Validate(input)
}

// Execute копирует input и рендерит mappings.
func (e *TransformExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("transform: %w", err)
	}

	mappings, err := parseMappings(input[configMappings])
	if err != nil {
		return nil, err
	}

	output := maps.Clone(input)
	if output == nil {
		output = make(map[string]any)
	}
	delete(output, configMappings)

	// Сортировка — для детерминированного порядка ошибок
	keys := make([]string, 0, len(mappings))
	for k := range mappings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rendered, err := renderTemplate(key, mappings[key], input)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", key, err)
		}
		output[key] = parseValue(rendered)
	}

	return output, nil
}

// parseMappings извлекает mappings из input.
func parseMappings(raw any) (map[string]string, error) {
	switch m := raw.(type) {
	case nil:
		return nil, nil

	case map[string]string:
		return m, nil

	case map[string]any:
		result := make(map[string]string, len(m))
		for key, val := range m {
			str, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mappings.%s must be a string", ErrInvalidInput, key)
			}
			result[key] = str
		}
		return result, nil

	default:
		return nil, fmt.Errorf("%w: mappings must be an object", ErrInvalidInput)
	}
}
