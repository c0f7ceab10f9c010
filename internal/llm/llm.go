// Package llm описывает контракт языковой модели, которой пользуется writer-агент.
package llm

import "context"

// Request — запрос на генерацию текста.
type Request struct {
	// System — системная инструкция.
	System string

	// User — пользовательский промпт.
	User string

	// Temperature — 0..2; 0 означает значение клиента по умолчанию.
	Temperature float32

	// MaxTokens — ограничение длины ответа; 0 означает значение клиента по умолчанию.
	MaxTokens int
}

// Response — сгенерированный текст.
type Response struct {
	Content string
	Model   string
}

// Completer — интерфейс, от которого зависит WriterExecutor.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}
