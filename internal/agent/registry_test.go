package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shaiso/artwiki/internal/domain"
)

type stubExecutor struct {
	name string
}

func (s stubExecutor) Execute(_ context.Context, _ map[string]any) (map[string]any, error) {
	return map[string]any{"by": s.name}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)

	// Пустой реестр
	if len(r.Types()) != 0 {
		t.Errorf("expected empty registry")
	}

	r.Register("crawler", stubExecutor{name: "a"})

	exec, err := r.Get("crawler")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := exec.Execute(context.Background(), nil)
	if out["by"] != "a" {
		t.Errorf("expected executor a, got %v", out["by"])
	}

	// Несуществующий тип
	_, err = r.Get("painter")
	if !errors.Is(err, ErrUnknownTaskType) {
		t.Errorf("expected ErrUnknownTaskType, got %v", err)
	}
	if err.Error() != "unknown task type: painter" {
		t.Errorf("unexpected error text: %q", err.Error())
	}

	if !r.Has("crawler") || r.Has("painter") {
		t.Error("Has returned wrong result")
	}
}

func TestRegistry_RegisterOverwrites(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("crawler", stubExecutor{name: "first"})
	r.Register("crawler", stubExecutor{name: "second"})

	exec, err := r.Get("crawler")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, _ := exec.Execute(context.Background(), nil)
	if out["by"] != "second" {
		t.Errorf("last registration should win, got %v", out["by"])
	}
	if len(r.Types()) != 1 {
		t.Errorf("expected 1 type, got %v", r.Types())
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			r.Register(fmt.Sprintf("t%d", i%5), stubExecutor{})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = r.Get(fmt.Sprintf("t%d", i%5))
		}(i)
	}
	wg.Wait()

	if len(r.Types()) != 5 {
		t.Errorf("expected 5 types, got %v", r.Types())
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry(Deps{})

	expected := []string{"crawler", "delay", "mediawiki", "transform", "writer"}
	types := r.Types()
	if strings.Join(types, ",") != strings.Join(expected, ",") {
		t.Errorf("expected %v, got %v", expected, types)
	}

	// Все стандартные executor'ы валидируют input и пишут хуки
	for _, typ := range expected {
		exec, _ := r.Get(typ)
		if _, ok := exec.(InputValidator); !ok {
			t.Errorf("%s should implement InputValidator", typ)
		}
		if _, ok := exec.(SuccessHook); !ok {
			t.Errorf("%s should implement SuccessHook", typ)
		}
		if _, ok := exec.(FailureHook); !ok {
			t.Errorf("%s should implement FailureHook", typ)
		}
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"unknown", fmt.Errorf("%w: x", ErrUnknownTaskType), domain.ErrorKindUnknownTaskType},
		{"validation", fmt.Errorf("%w: url is required", ErrInvalidInput), domain.ErrorKindValidation},
		{"timeout", fmt.Errorf("%w: GET x", ErrTimeout), domain.ErrorKindTimeout},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), domain.ErrorKindTimeout},
		{"cancelled", fmt.Errorf("delay: %w", context.Canceled), domain.ErrorKindCancelled},
		{"upstream", fmt.Errorf("%w: status 500", ErrUpstream), domain.ErrorKindRuntime},
		{"plain", errors.New("boom"), domain.ErrorKindRuntime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorKind(tt.err); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSchema_Validate(t *testing.T) {
	s := MustCompileSchema("test", `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}, "count": {"type": "integer"}}
	}`)

	if err := s.Validate(map[string]any{"name": "x", "count": 3}); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}

	err := s.Validate(map[string]any{})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "name") {
		t.Errorf("error should name the missing field, got %q", err.Error())
	}

	if err := s.Validate(map[string]any{"name": "x", "count": "three"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected type error, got %v", err)
	}

	if err := s.Validate(nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("nil input misses required field, got %v", err)
	}
}

func TestCompileSchema_Invalid(t *testing.T) {
	if _, err := CompileSchema("bad", `{"type": 12}`); err == nil {
		t.Error("expected compile error")
	}
}
