package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

func (e *testEnv) status(t *testing.T, method, path string) int {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func (e *testEnv) createArtist(t *testing.T, body string) string {
	t.Helper()
	resp, out := e.do(t, http.MethodPost, "/api/v1/artists", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create artist: expected 201, got %d: %v", resp.StatusCode, out)
	}
	return out["data"].(map[string]any)["id"].(string)
}

func TestArtists(t *testing.T) {
	env := newTestEnv(t, nil)

	monetID := env.createArtist(t, `{"name": "Claude Monet", "type": "painter", "birth_date": "1840-11-14"}`)
	env.createArtist(t, `{"name": "Anton Chekhov", "type": "writer"}`)

	t.Run("create validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
			want int
		}{
			{"missing name", `{"type": "painter"}`, http.StatusBadRequest},
			{"bad type", `{"name": "X", "type": "sculptor"}`, http.StatusBadRequest},
			{"bad date", `{"name": "X", "type": "painter", "birth_date": "14.11.1840"}`, http.StatusBadRequest},
			{"empty body", ``, http.StatusBadRequest},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				resp, _ := env.do(t, http.MethodPost, "/api/v1/artists", tt.body)
				if resp.StatusCode != tt.want {
					t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
				}
			})
		}
	})

	t.Run("duplicate wiki page is a conflict", func(t *testing.T) {
		env.createArtist(t, `{"name": "Edgar Degas", "type": "painter", "mediawiki_page_id": 9}`)
		resp, _ := env.do(t, http.MethodPost, "/api/v1/artists", `{"name": "Degas", "type": "painter", "mediawiki_page_id": 9}`)
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("expected 409, got %d", resp.StatusCode)
		}
	})

	t.Run("list", func(t *testing.T) {
		_, out := env.do(t, http.MethodGet, "/api/v1/artists?type=painter", "")
		if out["total"] != 2.0 {
			t.Errorf("expected 2 painters, got %v", out)
		}

		_, out = env.do(t, http.MethodGet, "/api/v1/artists?search=monet", "")
		data := out["data"].([]any)
		if len(data) != 1 || data[0].(map[string]any)["id"] != monetID {
			t.Errorf("search: got %v", data)
		}

		resp, _ := env.do(t, http.MethodGet, "/api/v1/artists?type=sculptor", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("get and update", func(t *testing.T) {
		resp, out := env.do(t, http.MethodGet, "/api/v1/artists/"+monetID, "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		if out["data"].(map[string]any)["birth_date"] != "1840-11-14" {
			t.Errorf("unexpected artist %v", out["data"])
		}

		resp, out = env.do(t, http.MethodPut, "/api/v1/artists/"+monetID, `{"nationality": "French"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		artist := out["data"].(map[string]any)
		if artist["nationality"] != "French" || artist["name"] != "Claude Monet" {
			t.Errorf("unexpected artist %v", artist)
		}

		resp, _ = env.do(t, http.MethodPut, "/api/v1/artists/"+monetID, `{"death_date": "1800-01-01"}`)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("death before birth: expected 400, got %d", resp.StatusCode)
		}

		resp, _ = env.do(t, http.MethodGet, "/api/v1/artists/"+uuid.NewString(), "")
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}
		resp, _ = env.do(t, http.MethodGet, "/api/v1/artists/nope", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("jobs by artist", func(t *testing.T) {
		env.do(t, http.MethodPost, "/api/v1/tasks",
			`{"task_type": "transform", "input": {"target_id": "`+monetID+`", "target_type": "artist"}}`)
		env.do(t, http.MethodPost, "/api/v1/tasks", `{"task_type": "transform"}`)

		_, out := env.do(t, http.MethodGet, "/api/v1/artists/"+monetID+"/jobs", "")
		data := out["data"].([]any)
		if out["total"] != 1.0 || data[0].(map[string]any)["target_id"] != monetID {
			t.Errorf("expected the artist's job only, got %v", out)
		}

		_, out = env.do(t, http.MethodGet, "/api/v1/jobs?target_id="+monetID, "")
		if out["total"] != 1.0 {
			t.Errorf("target_id filter: got %v", out)
		}

		resp, _ := env.do(t, http.MethodGet, "/api/v1/jobs?target_id=abc", "")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestWorksAndRelationships(t *testing.T) {
	env := newTestEnv(t, nil)
	vgID := env.createArtist(t, `{"name": "Vincent van Gogh", "type": "painter"}`)
	gauguinID := env.createArtist(t, `{"name": "Paul Gauguin", "type": "painter"}`)

	resp, out := env.do(t, http.MethodPost, "/api/v1/works",
		`{"artist_id": "`+vgID+`", "title": "The Starry Night", "year": 1889}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create work: expected 201, got %d: %v", resp.StatusCode, out)
	}
	workID := out["data"].(map[string]any)["id"].(string)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/works", `{"artist_id": "`+uuid.NewString()+`", "title": "Lost"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown artist: expected 400, got %d", resp.StatusCode)
	}

	_, out = env.do(t, http.MethodGet, "/api/v1/works?artist_id="+vgID+"&year=1889", "")
	if out["total"] != 1.0 {
		t.Errorf("filtered works: got %v", out)
	}
	resp, _ = env.do(t, http.MethodGet, "/api/v1/works?year=soon", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad year: expected 400, got %d", resp.StatusCode)
	}

	resp, out = env.do(t, http.MethodPut, "/api/v1/works/"+workID, `{"type": "painting"}`)
	if resp.StatusCode != http.StatusOK || out["data"].(map[string]any)["type"] != "painting" {
		t.Errorf("update work: %d %v", resp.StatusCode, out)
	}

	resp, out = env.do(t, http.MethodPost, "/api/v1/relationships",
		`{"source_artist_id": "`+vgID+`", "target_artist_id": "`+gauguinID+`", "relationship_type": "friend_of"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create relationship: expected 201, got %d: %v", resp.StatusCode, out)
	}
	relID := out["data"].(map[string]any)["id"].(string)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/relationships",
		`{"source_artist_id": "`+vgID+`", "target_artist_id": "`+vgID+`", "relationship_type": "self"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("self relationship: expected 400, got %d", resp.StatusCode)
	}

	_, out = env.do(t, http.MethodGet, "/api/v1/artists/"+gauguinID+"/relationships", "")
	if rels := out["data"].([]any); len(rels) != 1 {
		t.Errorf("expected 1 relationship, got %v", rels)
	}

	if code := env.status(t, http.MethodDelete, "/api/v1/relationships/"+relID); code != http.StatusNoContent {
		t.Errorf("delete relationship: expected 204, got %d", code)
	}
	if code := env.status(t, http.MethodDelete, "/api/v1/artists/"+vgID); code != http.StatusNoContent {
		t.Errorf("delete artist: expected 204, got %d", code)
	}
	if code := env.status(t, http.MethodGet, "/api/v1/works/"+workID); code != http.StatusNotFound {
		t.Errorf("work of deleted artist: expected 404, got %d", code)
	}
	if code := env.status(t, http.MethodDelete, "/api/v1/works/"+workID); code != http.StatusNotFound {
		t.Errorf("delete missing work: expected 404, got %d", code)
	}
}

func TestCatalogRoutesNeedStore(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler(Config{}).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/v1/artists")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 without catalog, got %d", resp.StatusCode)
	}
}

type fakeCounter struct {
	counts map[string]int64
	err    error
	at     time.Time
}

func (c *fakeCounter) Count(_ context.Context, taskType string, status domain.JobStatus, t time.Time) (int64, error) {
	c.at = t
	if c.err != nil {
		return 0, c.err
	}
	return c.counts[taskType+"/"+status.String()], nil
}

func TestJobStats(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{"writer/success": 3, "writer/failed": 1}}

	newServer := func(stats JobCounter) *httptest.Server {
		mux := http.NewServeMux()
		NewHandler(Config{Stats: stats}).RegisterRoutes(mux)
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}
	get := func(server *httptest.Server, query string) int {
		resp, err := http.Get(server.URL + "/api/v1/stats/jobs" + query)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	server := newServer(counter)
	env := &testEnv{server: server}
	_, out := env.do(t, http.MethodGet, "/api/v1/stats/jobs?task_type=writer&at=2026-01-02T15:04:05Z", "")
	counts := out["data"].(map[string]any)["counts"].(map[string]any)
	if counts["success"] != 3.0 || counts["failed"] != 1.0 {
		t.Errorf("unexpected counts %v", counts)
	}
	if !counter.at.Equal(time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)) {
		t.Errorf("at not passed through: %v", counter.at)
	}

	tests := []struct {
		name   string
		stats  JobCounter
		query  string
		status int
	}{
		{"missing task type", counter, "", http.StatusBadRequest},
		{"bad at", counter, "?task_type=writer&at=yesterday", http.StatusBadRequest},
		{"counter error", &fakeCounter{err: errors.New("redis down")}, "?task_type=writer", http.StatusInternalServerError},
		{"not configured", nil, "?task_type=writer", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := get(newServer(tt.stats), tt.query); got != tt.status {
				t.Errorf("expected %d, got %d", tt.status, got)
			}
		})
	}
}

func TestCreateWorkRequest_Embedded(t *testing.T) {
	var req CreateWorkRequest
	body := `{"artist_id": "` + uuid.NewString() + `", "title": "Sunflowers", "year": 1888}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if !decodeBody(httptest.NewRecorder(), r, &req) {
		t.Fatal("decode failed")
	}
	if req.ArtistID == uuid.Nil || req.Title == nil || *req.Title != "Sunflowers" || *req.Year != 1888 {
		t.Errorf("unexpected request %+v", req)
	}
}
