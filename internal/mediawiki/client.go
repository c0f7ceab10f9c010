// Package mediawiki — минимальный клиент MediaWiki Action API для публикации статей.
package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

// Ошибки клиента.
var (
	// ErrNotLoggedIn — операция требует CSRF-токен, а Login ещё не выполнен.
	ErrNotLoggedIn = errors.New("mediawiki: not logged in")

	// ErrLoginFailed — MediaWiki отклонил логин бота.
	ErrLoginFailed = errors.New("mediawiki: login failed")
)

// APIError — ошибка, возвращённая MediaWiki в поле "error".
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki api error: %s: %s", e.Code, e.Info)
}

// IsBadToken проверяет, что ошибка вызвана устаревшим CSRF-токеном.
func IsBadToken(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.Code == "badtoken" || apiErr.Code == "notoken")
}

// Config — параметры подключения.
type Config struct {
	APIURL   string
	Username string
	Password string
	Timeout  time.Duration
}

// Client — клиент MediaWiki API с cookie-сессией бота.
// Потокобезопасен: токен защищён мьютексом.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	token string
}

// Page — содержимое страницы из action=parse.
type Page struct {
	Title   string `json:"page_title"`
	PageID  int64  `json:"page_id"`
	Content string `json:"content"`
	Exists  bool   `json:"exists"`
}

// EditResult — результат action=edit.
type EditResult struct {
	Title  string
	PageID int64
	Result string
}

// NewClient создаёт клиент. Cookie jar обязателен: логин MediaWiki сессионный.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Jar: jar},
		logger: logger,
	}
}

// HasToken проверяет, получен ли CSRF-токен.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Invalidate сбрасывает CSRF-токен; следующий вызов EnsureLogin выполнит логин заново.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// EnsureLogin выполняет Login, если токена ещё нет.
// Конкурентные вызовы логинятся один раз.
func (c *Client) EnsureLogin(ctx context.Context) error {
	if c.HasToken() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return nil
	}
	return c.login(ctx)
}

// Login получает login-токен, логинится ботом и запрашивает CSRF-токен.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.login(ctx)
}

// login вызывается под c.mu.
func (c *Client) login(ctx context.Context) error {
	c.token = ""

	var tokens struct {
		Query struct {
			Tokens struct {
				LoginToken string `json:"logintoken"`
				CSRFToken  string `json:"csrftoken"`
			} `json:"tokens"`
		} `json:"query"`
	}

	// 1. Login token
	if err := c.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}, "type": {"login"}}, &tokens); err != nil {
		return fmt.Errorf("get login token: %w", err)
	}

	// 2. Login
	var login struct {
		Login struct {
			Result string `json:"result"`
			Reason string `json:"reason"`
		} `json:"login"`
	}
	form := url.Values{
		"action":     {"login"},
		"lgname":     {c.cfg.Username},
		"lgpassword": {c.cfg.Password},
		"lgtoken":    {tokens.Query.Tokens.LoginToken},
	}
	if err := c.post(ctx, form, &login); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if login.Login.Result != "Success" {
		return fmt.Errorf("%w: %s %s", ErrLoginFailed, login.Login.Result, login.Login.Reason)
	}

	// 3. CSRF token
	if err := c.get(ctx, url.Values{"action": {"query"}, "meta": {"tokens"}}, &tokens); err != nil {
		return fmt.Errorf("get csrf token: %w", err)
	}
	if tokens.Query.Tokens.CSRFToken == "" {
		return fmt.Errorf("%w: empty csrf token", ErrLoginFailed)
	}
	c.token = tokens.Query.Tokens.CSRFToken

	c.logger.Info("logged in to MediaWiki", "user", c.cfg.Username)
	return nil
}

// Edit создаёт или редактирует страницу.
func (c *Client) Edit(ctx context.Context, title, content string) (*EditResult, error) {
	token, err := c.csrfToken()
	if err != nil {
		return nil, err
	}

	var resp struct {
		Edit struct {
			Result string `json:"result"`
			PageID int64  `json:"pageid"`
			Title  string `json:"title"`
		} `json:"edit"`
	}
	form := url.Values{
		"action": {"edit"},
		"title":  {title},
		"text":   {content},
		"token":  {token},
		"bot":    {"1"},
	}
	if err := c.post(ctx, form, &resp); err != nil {
		return nil, err
	}

	return &EditResult{
		Title:  title,
		PageID: resp.Edit.PageID,
		Result: resp.Edit.Result,
	}, nil
}

// Delete удаляет страницу.
func (c *Client) Delete(ctx context.Context, title string) error {
	token, err := c.csrfToken()
	if err != nil {
		return err
	}

	form := url.Values{
		"action": {"delete"},
		"title":  {title},
		"token":  {token},
	}
	var resp map[string]any
	return c.post(ctx, form, &resp)
}

// GetPage возвращает wikitext страницы.
// Для отсутствующей страницы возвращает Page{Exists: false} без ошибки.
func (c *Client) GetPage(ctx context.Context, title string) (*Page, error) {
	var resp struct {
		Parse struct {
			PageID   int64 `json:"pageid"`
			Wikitext struct {
				Content string `json:"*"`
			} `json:"wikitext"`
		} `json:"parse"`
	}
	err := c.get(ctx, url.Values{"action": {"parse"}, "page": {title}, "prop": {"wikitext"}}, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "missingtitle" {
		return &Page{Title: title, Exists: false}, nil
	}
	if err != nil {
		return nil, err
	}

	return &Page{
		Title:   title,
		PageID:  resp.Parse.PageID,
		Content: resp.Parse.Wikitext.Content,
		Exists:  true,
	}, nil
}

func (c *Client) csrfToken() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", ErrNotLoggedIn
	}
	return c.token, nil
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, params url.Values, result any) error {
	params.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, result)
}

func (c *Client) post(ctx context.Context, form url.Values, result any) error {
	form.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, result)
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mediawiki http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("mediawiki status %d", resp.StatusCode)
	}

	// MediaWiki возвращает ошибки с HTTP 200 в поле "error"
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
