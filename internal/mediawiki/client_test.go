package mediawiki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// fakeWiki — минимальный MediaWiki API: логин, edit, delete, parse.
type fakeWiki struct {
	edits      atomic.Int32
	badToken   atomic.Bool
	rejectAuth bool
	lastEdit   map[string]string
}

func (f *fakeWiki) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("format") != "json" {
			t.Errorf("format=json expected, got %q", r.Form.Get("format"))
		}

		switch r.Form.Get("action") {
		case "query":
			if r.Form.Get("type") == "login" {
				http.SetCookie(w, &http.Cookie{Name: "wikisession", Value: "s1"})
				writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]any{"logintoken": "lt+\\"}}})
				return
			}
			if _, err := r.Cookie("wikisession"); err != nil {
				t.Error("session cookie should be sent after login")
			}
			writeJSON(w, map[string]any{"query": map[string]any{"tokens": map[string]any{"csrftoken": "csrf+\\"}}})

		case "login":
			if f.rejectAuth || r.Form.Get("lgtoken") != "lt+\\" {
				writeJSON(w, map[string]any{"login": map[string]any{"result": "Failed", "reason": "Incorrect password"}})
				return
			}
			writeJSON(w, map[string]any{"login": map[string]any{"result": "Success"}})

		case "edit":
			if f.badToken.CompareAndSwap(true, false) {
				writeJSON(w, map[string]any{"error": map[string]any{"code": "badtoken", "info": "Invalid CSRF token."}})
				return
			}
			f.edits.Add(1)
			f.lastEdit = map[string]string{
				"title": r.Form.Get("title"),
				"text":  r.Form.Get("text"),
				"token": r.Form.Get("token"),
				"bot":   r.Form.Get("bot"),
			}
			writeJSON(w, map[string]any{"edit": map[string]any{"result": "Success", "pageid": 42, "title": r.Form.Get("title")}})

		case "delete":
			writeJSON(w, map[string]any{"delete": map[string]any{"title": r.Form.Get("title")}})

		case "parse":
			if r.Form.Get("page") == "Missing" {
				writeJSON(w, map[string]any{"error": map[string]any{"code": "missingtitle", "info": "The page doesn't exist."}})
				return
			}
			writeJSON(w, map[string]any{"parse": map[string]any{"pageid": 7, "wikitext": map[string]any{"*": "'''Jane'''"}}})

		default:
			t.Errorf("unexpected action %q", r.Form.Get("action"))
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeWiki) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)
	return NewClient(Config{APIURL: server.URL, Username: "bot", Password: "secret"}, nil)
}

func TestClient_LoginAndEdit(t *testing.T) {
	f := &fakeWiki{}
	c := newTestClient(t, f)
	ctx := context.Background()

	if _, err := c.Edit(ctx, "Jane Doe", "text"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn before login, got %v", err)
	}

	if err := c.EnsureLogin(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !c.HasToken() {
		t.Fatal("token should be stored after login")
	}

	res, err := c.Edit(ctx, "Jane Doe", "'''Jane Doe''' is a painter.")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if res.PageID != 42 || res.Result != "Success" {
		t.Errorf("unexpected edit result: %+v", res)
	}
	if f.lastEdit["token"] != "csrf+\\" {
		t.Errorf("csrf token should be sent, got %q", f.lastEdit["token"])
	}
	if f.lastEdit["bot"] != "1" {
		t.Error("edits should be flagged as bot edits")
	}
}

func TestClient_LoginRejected(t *testing.T) {
	c := newTestClient(t, &fakeWiki{rejectAuth: true})

	err := c.Login(context.Background())
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("expected ErrLoginFailed, got %v", err)
	}
	if c.HasToken() {
		t.Error("token must not be set after failed login")
	}
}

func TestClient_BadTokenError(t *testing.T) {
	f := &fakeWiki{}
	c := newTestClient(t, f)
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}

	f.badToken.Store(true)
	_, err := c.Edit(ctx, "Jane", "x")
	if !IsBadToken(err) {
		t.Fatalf("expected bad token error, got %v", err)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Info == "" {
		t.Errorf("expected APIError with info, got %v", err)
	}
}

func TestClient_GetPage(t *testing.T) {
	c := newTestClient(t, &fakeWiki{})
	ctx := context.Background()

	page, err := c.GetPage(ctx, "Jane")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	if !page.Exists || page.Content != "'''Jane'''" || page.PageID != 7 {
		t.Errorf("unexpected page: %+v", page)
	}

	missing, err := c.GetPage(ctx, "Missing")
	if err != nil {
		t.Fatalf("missing page should not be an error, got %v", err)
	}
	if missing.Exists {
		t.Error("missing page should have Exists=false")
	}
}

func TestClient_Delete(t *testing.T) {
	c := newTestClient(t, &fakeWiki{})
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := c.Delete(ctx, "Jane"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	c.Invalidate()
	if err := c.Delete(ctx, "Jane"); !errors.Is(err, ErrNotLoggedIn) {
		t.Errorf("expected ErrNotLoggedIn after Invalidate, got %v", err)
	}
}

func TestClient_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(Config{APIURL: server.URL}, nil)
	if _, err := c.GetPage(context.Background(), "Jane"); err == nil {
		t.Fatal("expected error for 502")
	}
}
