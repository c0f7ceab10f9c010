package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/artwiki/internal/mediawiki"
)

// Действия MediaWikiExecutor.
const (
	WikiActionCreate = "create"
	WikiActionEdit   = "edit"
	WikiActionDelete = "delete"
	WikiActionGet    = "get"
)

var mediawikiSchema = MustCompileSchema(TaskTypeMediaWiki, `{
	"type": "object",
	"required": ["page_title"],
	"properties": {
		"action": {"enum": ["create", "edit", "delete", "get"]},
		"page_title": {"type": "string", "minLength": 1},
		"content": {"type": "string"},
		"wiki_content": {"type": "string"}
	}
}`)

// errNoWiki — mediawiki зарегистрирован без клиента.
var errNoWiki = errors.New("mediawiki client is not configured")

// WikiClient — операции MediaWiki, нужные executor'у.
// Реализуется *mediawiki.Client.
type WikiClient interface {
	EnsureLogin(ctx context.Context) error
	Invalidate()
	Edit(ctx context.Context, title, content string) (*mediawiki.EditResult, error)
	Delete(ctx context.Context, title string) error
	GetPage(ctx context.Context, title string) (*mediawiki.Page, error)
}

// MediaWikiExecutor — публикует и читает статьи MediaWiki.
//
// Input:
//
//	{
//	    "action": "create|edit|delete|get",  // по умолчанию edit
//	    "page_title": "Jane Doe",            // обязательный
//	    "content": "..."                     // для create/edit; иначе берётся wiki_content
//	}
//
// get не требует логина и возвращает текст страницы в wiki_content;
// отсутствующая страница — успех со status "missing".
//
// Логин выполняется лениво при первом вызове. Если вики отвечает
// badtoken, executor логинится заново и повторяет действие один раз.
type MediaWikiExecutor struct {
	baseAgent
	client WikiClient
}

// NewMediaWikiExecutor создаёт MediaWikiExecutor.
func NewMediaWikiExecutor(client WikiClient, logger *slog.Logger) *MediaWikiExecutor {
	return &MediaWikiExecutor{
		baseAgent: newBaseAgent(TaskTypeMediaWiki, logger),
		client:    client,
	}
}

// ValidateInput проверяет page_title, action и наличие текста для create/edit.
func (e *MediaWikiExecutor) ValidateInput(input map[string]any) error {
	if err := mediawikiSchema.Validate(input); err != nil {
		return err
	}
	if _, err := requireString(input, "page_title"); err != nil {
		return err
	}
	action := optionalString(input, "action", WikiActionEdit)
	needsContent := action == WikiActionCreate || action == WikiActionEdit
	if needsContent && pageContent(input) == "" {
		return fmt.Errorf("%w: content is required for %s", ErrInvalidInput, action)
	}
	return nil
}

// Execute выполняет действие над страницей.
func (e *MediaWikiExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := e.ValidateInput(input); err != nil {
		return nil, err
	}
	if e.client == nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, errNoWiki)
	}

	action := optionalString(input, "action", WikiActionEdit)
	title, _ := requireString(input, "page_title")
	content := pageContent(input)

	e.logger.InfoContext(ctx, "executing mediawiki action", "action", action, "page_title", title)

	output, err := e.run(ctx, action, title, content)
	if mediawiki.IsBadToken(err) {
		e.logger.WarnContext(ctx, "mediawiki token rejected, logging in again", "page_title", title)
		e.client.Invalidate()
		output, err = e.run(ctx, action, title, content)
	}
	if err != nil {
		return nil, e.wrap(ctx, action, title, err)
	}

	e.logger.InfoContext(ctx, "mediawiki action completed", "action", action, "page_title", title)
	return output, nil
}

func (e *MediaWikiExecutor) run(ctx context.Context, action, title, content string) (map[string]any, error) {
	if action == WikiActionGet {
		page, err := e.client.GetPage(ctx, title)
		if err != nil {
			return nil, err
		}
		status := "found"
		if !page.Exists {
			status = "missing"
		}
		return map[string]any{
			"page_title":   title,
			"page_id":      page.PageID,
			"wiki_content": page.Content,
			"exists":       page.Exists,
			"status":       status,
		}, nil
	}

	if err := e.client.EnsureLogin(ctx); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	switch action {
	case WikiActionDelete:
		if err := e.client.Delete(ctx, title); err != nil {
			return nil, err
		}
		return map[string]any{
			"page_title": title,
			"status":     "deleted",
		}, nil

	default:
		res, err := e.client.Edit(ctx, title, content)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"page_title": title,
			"page_id":    res.PageID,
			"status":     "success",
		}, nil
	}
}

func (e *MediaWikiExecutor) wrap(ctx context.Context, action, title string, err error) error {
	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("mediawiki %s %q: %w", action, title, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: mediawiki %s %q: %v", ErrTimeout, action, title, err)
	default:
		return fmt.Errorf("%w: mediawiki %s %q: %v", ErrUpstream, action, title, err)
	}
}

// pageContent — content или, если его нет, wiki_content из контекста workflow.
func pageContent(input map[string]any) string {
	if s, ok := input["content"].(string); ok && s != "" {
		return s
	}
	if s, ok := input["wiki_content"].(string); ok {
		return s
	}
	return ""
}
