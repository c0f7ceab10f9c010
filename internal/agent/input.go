package agent

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// requireString извлекает непустую строку или возвращает ErrInvalidInput.
func requireString(input map[string]any, key string) (string, error) {
	s := optionalString(input, key, "")
	if s == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidInput, key)
	}
	return s, nil
}

// optionalString извлекает строку, пробелы по краям отбрасываются.
func optionalString(input map[string]any, key, def string) string {
	if v, ok := input[key].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return def
}

// getInt извлекает число: int, int64, float64 или json.Number.
// Дробная часть отбрасывается, значения вне диапазона int насыщаются.
func getInt(input map[string]any, key string) (int, bool) {
	switch n := input[key].(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		switch {
		case math.IsNaN(n):
			return 0, false
		case n >= math.MaxInt:
			return math.MaxInt, true
		case n <= math.MinInt:
			return math.MinInt, true
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

// getSeconds извлекает длительность в секундах, не больше limit;
// def, если ключа нет или значение ≤ 0.
func getSeconds(input map[string]any, key string, def, limit time.Duration) time.Duration {
	sec, ok := getInt(input, key)
	if !ok || sec <= 0 {
		return def
	}
	if sec >= int(limit/time.Second) {
		return limit
	}
	return time.Duration(sec) * time.Second
}
