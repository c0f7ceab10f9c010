package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	defaultCrawlerTimeout = 30 * time.Second
	defaultUserAgent      = "artwiki-crawler/1.0"

	// maxCrawlerTimeout — верхняя граница timeout_sec.
	maxCrawlerTimeout = 300 * time.Second

	// rawHTMLLimit — сколько символов страницы попадает в output.
	rawHTMLLimit = 1000

	// maxPageBytes — ограничение на чтение тела ответа.
	maxPageBytes = 5 << 20
)

var crawlerSchema = MustCompileSchema(TaskTypeCrawler, `{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "minLength": 1},
		"artist_name": {"type": "string"},
		"timeout_sec": {"type": "number", "minimum": 0, "maximum": 300}
	}
}`)

// CrawlerConfig — настройки crawler'а.
type CrawlerConfig struct {
	// Timeout — таймаут запроса по умолчанию (30s).
	Timeout time.Duration

	// UserAgent — заголовок User-Agent.
	UserAgent string

	// HTTPClient — опциональный клиент (для тестов).
	HTTPClient *http.Client
}

// CrawlerExecutor — скачивает страницу об артисте.
//
// Input:
//
//	{
//	    "url": "https://example.com/jane-doe",  // обязательный, http/https
//	    "artist_name": "Jane Doe",
//	    "timeout_sec": 30
//	}
//
// Output:
//
//	{
//	    "name": "Jane Doe",
//	    "source_url": "https://example.com/jane-doe",
//	    "title": "Jane Doe — Painter",
//	    "raw_html": "<!doctype html>...",
//	    "status_code": 200
//	}
type CrawlerExecutor struct {
	baseAgent
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// NewCrawlerExecutor создаёт CrawlerExecutor.
func NewCrawlerExecutor(cfg CrawlerConfig, logger *slog.Logger) *CrawlerExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCrawlerTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &CrawlerExecutor{
		baseAgent: newBaseAgent(TaskTypeCrawler, logger),
		client:    client,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
	}
}

// ValidateInput проверяет наличие url и его схему.
func (e *CrawlerExecutor) ValidateInput(input map[string]any) error {
	if err := crawlerSchema.Validate(input); err != nil {
		return err
	}
	raw, err := requireString(input, "url")
	if err != nil {
		return err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: url: %v", ErrInvalidInput, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: url: unsupported scheme %q", ErrInvalidInput, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: url: host is required", ErrInvalidInput)
	}
	return nil
}

// Execute скачивает страницу и извлекает заголовок.
func (e *CrawlerExecutor) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := e.ValidateInput(input); err != nil {
		return nil, err
	}
	target, _ := requireString(input, "url")
	artistName := optionalString(input, "artist_name", "")
	timeout := getSeconds(input, "timeout_sec", e.timeout, maxCrawlerTimeout)

	e.logger.InfoContext(ctx, "crawling", "artist_name", artistName, "url", target)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, e.requestError(ctx, reqCtx, target, timeout, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, e.requestError(ctx, reqCtx, target, timeout, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: GET %s: status %d", ErrUpstream, target, resp.StatusCode)
	}

	var name any
	if artistName != "" {
		name = artistName
	}
	var title any
	if t, ok := extractTitle(body); ok {
		title = t
	}

	return map[string]any{
		"name":        name,
		"source_url":  target,
		"title":       title,
		"raw_html":    truncateRunes(string(body), rawHTMLLimit),
		"status_code": resp.StatusCode,
	}, nil
}

// requestError различает отмену вызывающего, таймаут запроса и сетевую ошибку.
func (e *CrawlerExecutor) requestError(ctx, reqCtx context.Context, target string, timeout time.Duration, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("GET %s: %w", target, ctx.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: GET %s after %s", ErrTimeout, target, timeout)
	}
	return fmt.Errorf("%w: GET %s: %v", ErrUpstream, target, err)
}

// extractTitle возвращает текст первого <title>.
func extractTitle(body []byte) (string, bool) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", false
	}

	var find func(n *html.Node) (*html.Node, bool)
	find = func(n *html.Node) (*html.Node, bool) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			return n, true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if found, ok := find(c); ok {
				return found, true
			}
		}
		return nil, false
	}

	node, ok := find(doc)
	if !ok {
		return "", false
	}

	var sb strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return strings.TrimSpace(sb.String()), true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
