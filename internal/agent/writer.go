package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shaiso/artwiki/internal/llm"
)

const writerSystemPrompt = "You are a helpful assistant that creates well-structured Wikipedia-style articles about artists."

var writerSchema = MustCompileSchema(TaskTypeWriter, `{
	"type": "object",
	"required": ["artist_name"],
	"properties": {
		"artist_name": {"type": "string", "minLength": 1},
		"artist_type": {"type": "string"}
	}
}`)

// errNoCompleter — writer зарегистрирован без LLM-клиента.
var errNoCompleter = errors.New("llm client is not configured")

// WriterExecutor — генерирует вики-статью об артисте через LLM.
//
// Input:
//
//	{
//	    "artist_name": "Jane Doe",          // обязательный
//	    "artist_type": "painter",           // по умолчанию "artist"
//	    "source_data": {...}                // данные crawler'а, любая структура
//	}
//
// Output:
//
//	{
//	    "artist_name": "Jane Doe",
//	    "wiki_content": "'''Jane Doe''' is ...",
//	    "format": "wikitext",
//	    "model": "gpt-4"
//	}
type WriterExecutor struct {
	baseAgent
	llm llm.Completer
}

// NewWriterExecutor создаёт WriterExecutor.
func NewWriterExecutor(completer llm.Completer, logger *slog.Logger) *WriterExecutor {
	return &WriterExecutor{
		baseAgent: newBaseAgent(TaskTypeWriter, logger),
		llm:       completer,
	}
}

// ValidateInput проверяет наличие artist_name.
func (e *WriterExecutor) ValidateInput(input map[string]any) error {
	if err := writerSchema.Validate(input); err != nil {
		return err
	}
	_, err := requireString(input, "artist_name")
	return err
}

// Execute строит промпт и вызывает LLM.
func (e *WriterExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := e.ValidateInput(input); err != nil {
		return nil, err
	}
	if e.llm == nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, errNoCompleter)
	}

	artistName, _ := requireString(input, "artist_name")
	artistType := optionalString(input, "artist_type", "artist")

	e.logger.InfoContext(ctx, "generating wiki page", "artist_name", artistName)

	resp, err := e.llm.Complete(ctx, llm.Request{
		System: writerSystemPrompt,
		User:   buildArticlePrompt(artistName, artistType, input["source_data"]),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm complete: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: llm complete: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(resp.Content) == "" {
		return nil, fmt.Errorf("%w: llm returned empty content", ErrUpstream)
	}

	model := resp.Model
	if m, ok := e.llm.(interface{ Model() string }); ok && model == "" {
		model = m.Model()
	}

	return map[string]any{
		"artist_name":  artistName,
		"wiki_content": resp.Content,
		"format":       "wikitext",
		"model":        model,
	}, nil
}

// buildArticlePrompt формирует пользовательский промпт статьи.
func buildArticlePrompt(artistName, artistType string, sourceData any) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a Wikipedia-style article about %s, a %s.\n\n", artistName, artistType)
	sb.WriteString("Source data:\n")
	sb.WriteString(formatSourceData(sourceData))
	sb.WriteString("\n\n")
	sb.WriteString("Please create a well-structured article with the following sections:\n")
	sb.WriteString("1. Introduction (brief overview)\n")
	sb.WriteString("2. Early Life\n")
	sb.WriteString("3. Career\n")
	sb.WriteString("4. Notable Works\n")
	sb.WriteString("5. Legacy and Influence\n\n")
	sb.WriteString("Use proper Wikipedia formatting (wikitext syntax).\n")
	return sb.String()
}

func formatSourceData(v any) string {
	switch d := v.(type) {
	case nil:
		return "{}"
	case string:
		return d
	default:
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", d)
		}
		return string(b)
	}
}
