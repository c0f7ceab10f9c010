package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// parseKeyValues разбирает пары KEY=VALUE.
//
// VALUE, похожий на JSON (число, bool, объект, массив), декодируется,
// остальное остаётся строкой.
func parseKeyValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input format %q, expected KEY=VALUE", kv)
		}
		out[key] = parseValue(value)
	}
	return out, nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		if _, isString := v.(string); !isString {
			return v
		}
	}
	return s
}

// readWorkflowFile читает описание workflow из JSON-файла.
// "-" означает stdin.
//
// Файл может содержать массив шагов или объект {steps|workflow, context}.
func readWorkflowFile(path string) (WorkflowRequest, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return WorkflowRequest{}, fmt.Errorf("read workflow: %w", err)
	}
	return decodeWorkflow(data)
}

func decodeWorkflow(data []byte) (WorkflowRequest, error) {
	var req WorkflowRequest
	var steps []WorkflowStep
	if err := json.Unmarshal(data, &steps); err == nil {
		req.Steps = steps
	} else if err := decodeWorkflowObject(data, &req); err != nil {
		return WorkflowRequest{}, err
	}
	if len(req.Steps) == 0 {
		return WorkflowRequest{}, fmt.Errorf("workflow has no steps")
	}
	return req, nil
}

func decodeWorkflowObject(data []byte, req *WorkflowRequest) error {
	var raw struct {
		Steps    []WorkflowStep `json:"steps"`
		Workflow []WorkflowStep `json:"workflow"`
		Context  map[string]any `json:"context"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode workflow: %w", err)
	}
	req.Steps, req.Context = raw.Steps, raw.Context
	if len(req.Steps) == 0 {
		req.Steps = raw.Workflow
	}
	return nil
}

// formatMap выводит map в виде k=v через запятую, ключи по алфавиту.
func formatMap(m map[string]any, maxValue int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := fmt.Sprint(m[k])
		if maxValue > 0 && len(v) > maxValue {
			v = v[:maxValue] + "..."
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ", ")
}
