package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// templateFuncs — функции, доступные в mappings transform'а.
var templateFuncs = template.FuncMap{
	// json — сериализует значение в JSON строку
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("error: %v", err)
		}
		return string(b)
	},

	// default — значение по умолчанию для пустого аргумента
	"default": func(def, val any) any {
		if val == nil {
			return def
		}
		if s, ok := val.(string); ok && s == "" {
			return def
		}
		return val
	},

	// coalesce — первое непустое значение
	"coalesce": func(values ...any) any {
		for _, v := range values {
			if v == nil {
				continue
			}
			if s, ok := v.(string); ok && s == "" {
				continue
			}
			return v
		}
		return nil
	},

	"lower":    strings.ToLower,
	"upper":    strings.ToUpper,
	"trim":     strings.TrimSpace,
	"replace":  strings.ReplaceAll,
	"contains": strings.Contains,
	"title": func(s string) string {
		words := strings.Fields(s)
		for i, w := range words {
			r := []rune(w)
			words[i] = strings.ToUpper(string(r[:1])) + string(r[1:])
		}
		return strings.Join(words, " ")
	},
}

// renderTemplate рендерит шаблон; data доступна как "." ({{ .artist_name }}).
// Строка без "{{" возвращается как есть.
func renderTemplate(name, tmpl string, data map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New(name).Funcs(templateFuncs).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: parse %s: %v", ErrInvalidInput, name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: render %s: %v", ErrInvalidInput, name, err)
	}
	return buf.String(), nil
}

// parseValue пытается распарсить результат рендеринга как JSON.
// Если не получается — возвращает строку как есть.
func parseValue(value string) any {
	trimmed := strings.TrimSpace(value)

	// Объекты и массивы
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
		return value
	}

	// Числа
	var num json.Number
	if err := json.Unmarshal([]byte(trimmed), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	switch trimmed {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
