package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shaiso/artwiki/internal/llm"
	"github.com/shaiso/artwiki/internal/mediawiki"
)

// Crawler Tests

func TestCrawlerExecutor_Execute(t *testing.T) {
	page := "<html><head><title> Jane Doe — Painter </title></head><body>" + strings.Repeat("é", 2000) + "</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent should be set")
		}
		w.Write([]byte(page))
	}))
	defer server.Close()

	exec := NewCrawlerExecutor(CrawlerConfig{}, nil)
	out, err := exec.Execute(context.Background(), map[string]any{
		"url":         server.URL,
		"artist_name": "Jane Doe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["name"] != "Jane Doe" {
		t.Errorf("expected name Jane Doe, got %v", out["name"])
	}
	if out["source_url"] != server.URL {
		t.Errorf("expected source_url %s, got %v", server.URL, out["source_url"])
	}
	if out["title"] != "Jane Doe — Painter" {
		t.Errorf("unexpected title %q", out["title"])
	}
	if out["status_code"] != 200 {
		t.Errorf("expected status 200, got %v", out["status_code"])
	}
	raw, _ := out["raw_html"].(string)
	if n := len([]rune(raw)); n != rawHTMLLimit {
		t.Errorf("raw_html should be truncated to %d runes, got %d", rawHTMLLimit, n)
	}
}

func TestCrawlerExecutor_NoTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<p>no title here</p>"))
	}))
	defer server.Close()

	out, err := NewCrawlerExecutor(CrawlerConfig{}, nil).Execute(context.Background(), map[string]any{"url": server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["title"] != nil {
		t.Errorf("title should be nil, got %v", out["title"])
	}
	if out["name"] != nil {
		t.Errorf("name should be nil without artist_name, got %v", out["name"])
	}
}

func TestCrawlerExecutor_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewCrawlerExecutor(CrawlerConfig{}, nil).Execute(context.Background(), map[string]any{"url": server.URL})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error should mention status, got %v", err)
	}
}

func TestCrawlerExecutor_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	exec := NewCrawlerExecutor(CrawlerConfig{Timeout: 50 * time.Millisecond}, nil)
	_, err := exec.Execute(context.Background(), map[string]any{"url": server.URL})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCrawlerExecutor_ValidateInput(t *testing.T) {
	exec := NewCrawlerExecutor(CrawlerConfig{}, nil)

	tests := []struct {
		name  string
		input map[string]any
	}{
		{"missing url", map[string]any{"artist_name": "Jane"}},
		{"empty url", map[string]any{"url": ""}},
		{"not a string", map[string]any{"url": 42}},
		{"ftp scheme", map[string]any{"url": "ftp://example.com"}},
		{"relative", map[string]any{"url": "/jane"}},
		{"timeout above limit", map[string]any{"url": "https://example.com", "timeout_sec": 1e10}},
		{"negative timeout", map[string]any{"url": "https://example.com", "timeout_sec": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.ValidateInput(tt.input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if err := exec.ValidateInput(map[string]any{"url": "https://example.com/jane"}); err != nil {
		t.Errorf("valid input rejected: %v", err)
	}
}

// Writer Tests

type fakeCompleter struct {
	resp llm.Response
	err  error
	got  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestWriterExecutor_Execute(t *testing.T) {
	completer := &fakeCompleter{resp: llm.Response{Content: "'''Jane Doe''' is a painter.", Model: "gpt-4"}}
	exec := NewWriterExecutor(completer, nil)

	out, err := exec.Execute(context.Background(), map[string]any{
		"artist_name": "Jane Doe",
		"artist_type": "painter",
		"source_data": map[string]any{"title": "Jane Doe — Painter"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["wiki_content"] != "'''Jane Doe''' is a painter." {
		t.Errorf("unexpected wiki_content %v", out["wiki_content"])
	}
	if out["format"] != "wikitext" || out["model"] != "gpt-4" || out["artist_name"] != "Jane Doe" {
		t.Errorf("unexpected output %v", out)
	}

	prompt := completer.got.User
	for _, want := range []string{"Jane Doe, a painter", "Early Life", "Notable Works", "Legacy and Influence", "Jane Doe — Painter"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
	if completer.got.System == "" {
		t.Error("system prompt should be set")
	}
}

func TestWriterExecutor_DefaultArtistType(t *testing.T) {
	completer := &fakeCompleter{resp: llm.Response{Content: "text"}}
	if _, err := NewWriterExecutor(completer, nil).Execute(context.Background(), map[string]any{"artist_name": "Jane"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(completer.got.User, "Jane, a artist") {
		t.Errorf("artist_type should default to artist, prompt: %s", completer.got.User)
	}
}

func TestWriterExecutor_Errors(t *testing.T) {
	tests := []struct {
		name      string
		completer llm.Completer
		input     map[string]any
		want      error
	}{
		{"missing artist_name", &fakeCompleter{}, map[string]any{}, ErrInvalidInput},
		{"llm error", &fakeCompleter{err: errors.New("rate limited")}, map[string]any{"artist_name": "Jane"}, ErrUpstream},
		{"empty content", &fakeCompleter{resp: llm.Response{Content: "  "}}, map[string]any{"artist_name": "Jane"}, ErrUpstream},
		{"no llm", nil, map[string]any{"artist_name": "Jane"}, ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriterExecutor(tt.completer, nil).Execute(context.Background(), tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// MediaWiki Tests

type fakeWiki struct {
	logins    atomic.Int32
	loggedIn  bool
	badTokens int
	edits     []string
	deletes   []string
	editErr   error
	pages     map[string]string
}

func (f *fakeWiki) EnsureLogin(context.Context) error {
	if !f.loggedIn {
		f.logins.Add(1)
		f.loggedIn = true
	}
	return nil
}

func (f *fakeWiki) Invalidate() { f.loggedIn = false }

func (f *fakeWiki) Edit(_ context.Context, title, content string) (*mediawiki.EditResult, error) {
	if f.badTokens > 0 {
		f.badTokens--
		return nil, &mediawiki.APIError{Code: "badtoken", Info: "Invalid CSRF token."}
	}
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, title+"="+content)
	return &mediawiki.EditResult{Title: title, PageID: 42, Result: "Success"}, nil
}

func (f *fakeWiki) Delete(_ context.Context, title string) error {
	f.deletes = append(f.deletes, title)
	return nil
}

func (f *fakeWiki) GetPage(_ context.Context, title string) (*mediawiki.Page, error) {
	content, ok := f.pages[title]
	if !ok {
		return &mediawiki.Page{Title: title}, nil
	}
	return &mediawiki.Page{Title: title, PageID: 7, Content: content, Exists: true}, nil
}

func TestMediaWikiExecutor_Get(t *testing.T) {
	wiki := &fakeWiki{pages: map[string]string{"Claude Monet": "'''Monet'''"}}
	exec := NewMediaWikiExecutor(wiki, nil)

	tests := []struct {
		title      string
		wantStatus string
		wantExists bool
		wantText   string
	}{
		{"Claude Monet", "found", true, "'''Monet'''"},
		{"Nobody", "missing", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			out, err := exec.Execute(context.Background(), map[string]any{
				"action":     "get",
				"page_title": tt.title,
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out["status"] != tt.wantStatus || out["exists"] != tt.wantExists || out["wiki_content"] != tt.wantText {
				t.Errorf("unexpected output %v", out)
			}
		})
	}

	// Чтение не требует логина.
	if wiki.logins.Load() != 0 {
		t.Errorf("get must not log in, got %d logins", wiki.logins.Load())
	}
}

func TestMediaWikiExecutor_EditUsesWikiContent(t *testing.T) {
	wiki := &fakeWiki{}
	exec := NewMediaWikiExecutor(wiki, nil)

	out, err := exec.Execute(context.Background(), map[string]any{
		"page_title":   "Jane Doe",
		"wiki_content": "'''Jane'''",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "success" || out["page_id"] != int64(42) || out["page_title"] != "Jane Doe" {
		t.Errorf("unexpected output %v", out)
	}
	if len(wiki.edits) != 1 || wiki.edits[0] != "Jane Doe='''Jane'''" {
		t.Errorf("unexpected edits %v", wiki.edits)
	}

	// Второй вызов не логинится повторно
	if _, err := exec.Execute(context.Background(), map[string]any{"page_title": "X", "content": "y"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wiki.logins.Load() != 1 {
		t.Errorf("expected single login, got %d", wiki.logins.Load())
	}
}

func TestMediaWikiExecutor_Delete(t *testing.T) {
	wiki := &fakeWiki{}
	out, err := NewMediaWikiExecutor(wiki, nil).Execute(context.Background(), map[string]any{
		"action":     "delete",
		"page_title": "Jane Doe",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["status"] != "deleted" {
		t.Errorf("expected deleted, got %v", out["status"])
	}
	if len(wiki.deletes) != 1 {
		t.Errorf("expected 1 delete, got %v", wiki.deletes)
	}
}

func TestMediaWikiExecutor_RetriesOnBadToken(t *testing.T) {
	wiki := &fakeWiki{badTokens: 1}
	_, err := NewMediaWikiExecutor(wiki, nil).Execute(context.Background(), map[string]any{
		"page_title": "Jane", "content": "x",
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if wiki.logins.Load() != 2 {
		t.Errorf("expected re-login, got %d logins", wiki.logins.Load())
	}

	// Повтор только один
	wiki = &fakeWiki{badTokens: 2}
	_, err = NewMediaWikiExecutor(wiki, nil).Execute(context.Background(), map[string]any{
		"page_title": "Jane", "content": "x",
	})
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream after second bad token, got %v", err)
	}
}

func TestMediaWikiExecutor_ValidateInput(t *testing.T) {
	exec := NewMediaWikiExecutor(&fakeWiki{}, nil)

	tests := []struct {
		name  string
		input map[string]any
		ok    bool
	}{
		{"edit with content", map[string]any{"page_title": "A", "content": "x"}, true},
		{"delete without content", map[string]any{"page_title": "A", "action": "delete"}, true},
		{"get without content", map[string]any{"page_title": "A", "action": "get"}, true},
		{"missing title", map[string]any{"content": "x"}, false},
		{"edit without content", map[string]any{"page_title": "A"}, false},
		{"unknown action", map[string]any{"page_title": "A", "action": "move", "content": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := exec.ValidateInput(tt.input)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

// Transform Tests

func TestTransformExecutor_Execute(t *testing.T) {
	exec := NewTransformExecutor(nil)
	input := map[string]any{
		"artist_name": " jane doe ",
		"count":       3,
		"mappings": map[string]any{
			"page_title": "{{ .artist_name | trim | title }}",
			"total":      "{{ .count }}",
			"static":     "plain",
		},
	}

	out, err := exec.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out["page_title"] != "Jane Doe" {
		t.Errorf("expected Jane Doe, got %v", out["page_title"])
	}
	if out["total"] != int64(3) {
		t.Errorf("expected int64 3, got %v (%T)", out["total"], out["total"])
	}
	if out["static"] != "plain" {
		t.Errorf("expected plain, got %v", out["static"])
	}
	if out["artist_name"] != " jane doe " {
		t.Error("input fields should be copied")
	}
	if _, ok := out["mappings"]; ok {
		t.Error("mappings should not be copied to output")
	}
	if _, ok := input["page_title"]; ok {
		t.Error("input must not be mutated")
	}
}

func TestTransformExecutor_Errors(t *testing.T) {
	exec := NewTransformExecutor(nil)

	_, err := exec.Execute(context.Background(), map[string]any{"mappings": map[string]any{"x": "{{ .a"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad template, got %v", err)
	}

	if err := exec.ValidateInput(map[string]any{"mappings": map[string]any{"x": 1}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for non-string mapping, got %v", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"1.5", 1.5},
		{"true", true},
		{"Jane", "Jane"},
		{"[1", "[1"},
	}
	for _, tt := range tests {
		if got := parseValue(tt.in); got != tt.want {
			t.Errorf("parseValue(%q) = %v (%T), want %v", tt.in, got, got, tt.want)
		}
	}
}

// Delay Tests

func TestDelayExecutor_Execute(t *testing.T) {
	start := time.Now()
	out, err := NewDelayExecutor(nil).Execute(context.Background(), map[string]any{"duration_ms": 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("delay was too short")
	}
	if out["duration_ms"] != int64(50) {
		t.Errorf("expected duration_ms 50, got %v", out["duration_ms"])
	}
}

func TestDelayExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewDelayExecutor(nil).Execute(ctx, map[string]any{"duration_sec": 10})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestGetSeconds(t *testing.T) {
	const def, limit = 30 * time.Second, 300 * time.Second

	tests := []struct {
		name  string
		input map[string]any
		want  time.Duration
	}{
		{"missing", nil, def},
		{"zero", map[string]any{"timeout_sec": 0}, def},
		{"negative", map[string]any{"timeout_sec": -5.0}, def},
		{"in range", map[string]any{"timeout_sec": 10.0}, 10 * time.Second},
		{"at limit", map[string]any{"timeout_sec": 300}, limit},
		{"above limit", map[string]any{"timeout_sec": 301}, limit},
		{"overflowing", map[string]any{"timeout_sec": 1e10}, limit},
		{"beyond int", map[string]any{"timeout_sec": 1e300}, limit},
		{"not a number", map[string]any{"timeout_sec": "10"}, def},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getSeconds(tt.input, "timeout_sec", def, limit); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCrawlerExecutor_OversizedTimeoutClamped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><head><title>Ok</title></head></html>"))
	}))
	defer server.Close()

	exec := NewCrawlerExecutor(CrawlerConfig{}, nil)
	out, err := exec.Execute(context.Background(), map[string]any{
		"url":         server.URL,
		"timeout_sec": 1e10,
	})
	if err != nil {
		t.Fatalf("healthy page should be fetched, got %v", err)
	}
	if out["title"] != "Ok" {
		t.Errorf("unexpected title %v", out["title"])
	}
}

func TestParseDelay(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  time.Duration
	}{
		{"default", nil, time.Second},
		{"seconds", map[string]any{"duration_sec": 5.0}, 5 * time.Second},
		{"millis", map[string]any{"duration_ms": 250}, 250 * time.Millisecond},
		{"capped", map[string]any{"duration_sec": 1000}, 300 * time.Second},
		{"huge seconds", map[string]any{"duration_sec": 1e300}, 300 * time.Second},
		{"huge millis", map[string]any{"duration_ms": 1e18}, 300 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDelay(tt.input); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
