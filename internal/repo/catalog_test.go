package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Monet", "%monet%"},
		{"van_g", `%van\_g%`},
		{"100%", `%100\%%`},
		{`a\b`, `%a\\b%`},
	}
	for _, tt := range tests {
		if got := likePattern(tt.in); got != tt.want {
			t.Errorf("likePattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildArtistWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    ArtistFilter
		wantWhere string
		wantArgs  int
	}{
		{"empty", ArtistFilter{}, "", 0},
		{"type", ArtistFilter{Type: domain.ArtistTypePainter}, " WHERE type = $1", 1},
		{
			"type and search",
			ArtistFilter{Type: domain.ArtistTypeWriter, Search: "tol"},
			` WHERE type = $1 AND LOWER(name) LIKE $2 ESCAPE '\'`,
			2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := buildArtistWhere(tt.filter, pgPlaceholder)
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

func TestBuildWorkWhere(t *testing.T) {
	artistID := uuid.New()
	year := 1889

	where, args := buildWorkWhere(WorkFilter{ArtistID: &artistID, Year: &year}, sqlitePlaceholder)
	if where != " WHERE artist_id = ? AND year = ?" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 || args[0] != artistID.String() || args[1] != 1889 {
		t.Errorf("args = %v", args)
	}
}

// Общие тесты для всех реализаций CatalogStore.

func TestMemoryCatalogRepo(t *testing.T) {
	testCatalogStore(t, func(t *testing.T) CatalogStore { return NewMemoryCatalogRepo() })
}

func TestSQLiteCatalogRepo(t *testing.T) {
	testCatalogStore(t, func(t *testing.T) CatalogStore {
		jobs, err := OpenSQLiteJobRepo(context.Background(), filepath.Join(t.TempDir(), "catalog.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { jobs.Close() })
		store, err := NewSQLiteCatalogRepo(context.Background(), jobs.db)
		if err != nil {
			t.Fatalf("catalog schema: %v", err)
		}
		return store
	})
}

func newArtist(t *testing.T, name string, artistType domain.ArtistType) *domain.Artist {
	t.Helper()
	a := domain.NewArtist()
	patch := domain.ArtistPatch{Name: &name, Type: &artistType}
	if err := patch.Apply(a, a.CreatedAt); err != nil {
		t.Fatalf("artist %q: %v", name, err)
	}
	return a
}

func newWork(t *testing.T, artistID uuid.UUID, title string, year int) *domain.Work {
	t.Helper()
	w := domain.NewWork(artistID)
	patch := domain.WorkPatch{Title: &title, Year: &year}
	if err := patch.Apply(w, w.CreatedAt); err != nil {
		t.Fatalf("work %q: %v", title, err)
	}
	return w
}

func testCatalogStore(t *testing.T, newStore func(t *testing.T) CatalogStore) {
	ctx := context.Background()

	t.Run("artist round trip", func(t *testing.T) {
		store := newStore(t)
		a := newArtist(t, "Claude Monet", domain.ArtistTypePainter)
		birth := domain.NewDate(1840, time.November, 14)
		death := domain.NewDate(1926, time.December, 5)
		pageID := int64(42)
		a.BirthDate, a.DeathDate = &birth, &death
		a.Nationality = "French"
		a.WikiPageID = &pageID
		a.WikiPageTitle = "Claude_Monet"

		if err := store.CreateArtist(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := store.GetArtist(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Name != a.Name || got.Type != a.Type || got.Nationality != "French" {
			t.Errorf("got %+v", got)
		}
		if got.BirthDate == nil || got.BirthDate.String() != "1840-11-14" {
			t.Errorf("birth_date = %v", got.BirthDate)
		}
		if got.DeathDate == nil || got.DeathDate.String() != "1926-12-05" {
			t.Errorf("death_date = %v", got.DeathDate)
		}
		if got.WikiPageID == nil || *got.WikiPageID != 42 || got.WikiPageTitle != "Claude_Monet" {
			t.Errorf("wiki page = %v %q", got.WikiPageID, got.WikiPageTitle)
		}
		if !got.CreatedAt.Equal(a.CreatedAt) {
			t.Errorf("created_at = %v, want %v", got.CreatedAt, a.CreatedAt)
		}

		if _, err := store.GetArtist(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate wiki page", func(t *testing.T) {
		store := newStore(t)
		pageID := int64(7)
		first := newArtist(t, "Leo Tolstoy", domain.ArtistTypeWriter)
		first.WikiPageID = &pageID
		second := newArtist(t, "Lev Tolstoy", domain.ArtistTypeWriter)
		second.WikiPageID = &pageID

		if err := store.CreateArtist(ctx, first); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := store.CreateArtist(ctx, second); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("list artists", func(t *testing.T) {
		store := newStore(t)
		for _, a := range []*domain.Artist{
			newArtist(t, "Vincent van Gogh", domain.ArtistTypePainter),
			newArtist(t, "Claude Monet", domain.ArtistTypePainter),
			newArtist(t, "Anton Chekhov", domain.ArtistTypeWriter),
			newArtist(t, "Van_Morrison", domain.ArtistTypeMusician),
		} {
			if err := store.CreateArtist(ctx, a); err != nil {
				t.Fatalf("create: %v", err)
			}
		}

		all, total, err := store.ListArtists(ctx, ArtistFilter{})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 4 || len(all) != 4 {
			t.Fatalf("total = %d, len = %d", total, len(all))
		}
		if all[0].Name != "Anton Chekhov" || all[3].Name != "Vincent van Gogh" {
			t.Errorf("not ordered by name: %s ... %s", all[0].Name, all[3].Name)
		}

		painters, total, _ := store.ListArtists(ctx, ArtistFilter{Type: domain.ArtistTypePainter})
		if total != 2 || len(painters) != 2 {
			t.Errorf("painters: total = %d, len = %d", total, len(painters))
		}

		found, total, _ := store.ListArtists(ctx, ArtistFilter{Search: "VAN"})
		if total != 2 || len(found) != 2 {
			t.Errorf("search VAN: total = %d, len = %d", total, len(found))
		}

		// "_" ищется буквально, а не как любой символ.
		found, total, _ = store.ListArtists(ctx, ArtistFilter{Search: "van_"})
		if total != 1 || len(found) != 1 || found[0].Name != "Van_Morrison" {
			t.Errorf("search van_: total = %d, got %v", total, found)
		}

		second, total, _ := store.ListArtists(ctx, ArtistFilter{Limit: 2, Offset: 2})
		if total != 4 || len(second) != 2 || second[0].Name != "Van_Morrison" {
			t.Errorf("page 2: total = %d, got %v", total, second)
		}
	})

	t.Run("update artist", func(t *testing.T) {
		store := newStore(t)
		a := newArtist(t, "Mozart", domain.ArtistTypeMusician)
		if err := store.CreateArtist(ctx, a); err != nil {
			t.Fatalf("create: %v", err)
		}

		name := "Wolfgang Amadeus Mozart"
		if err := (domain.ArtistPatch{Name: &name}).Apply(a, time.Now()); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := store.UpdateArtist(ctx, a); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, _ := store.GetArtist(ctx, a.ID)
		if got.Name != name {
			t.Errorf("name = %q", got.Name)
		}

		missing := newArtist(t, "Nobody", domain.ArtistTypeWriter)
		if err := store.UpdateArtist(ctx, missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("works", func(t *testing.T) {
		store := newStore(t)
		vg := newArtist(t, "Vincent van Gogh", domain.ArtistTypePainter)
		monet := newArtist(t, "Claude Monet", domain.ArtistTypePainter)
		for _, a := range []*domain.Artist{vg, monet} {
			if err := store.CreateArtist(ctx, a); err != nil {
				t.Fatalf("create artist: %v", err)
			}
		}

		base := time.Now().UTC()
		works := []*domain.Work{
			newWork(t, vg.ID, "The Starry Night", 1889),
			newWork(t, vg.ID, "Sunflowers", 1888),
			newWork(t, monet.ID, "Water Lilies", 1899),
		}
		for i, w := range works {
			w.CreatedAt = base.Add(time.Duration(i) * time.Second)
			if err := store.CreateWork(ctx, w); err != nil {
				t.Fatalf("create work: %v", err)
			}
		}

		orphan := newWork(t, uuid.New(), "Lost", 1900)
		if err := store.CreateWork(ctx, orphan); !errors.Is(err, ErrReferenceNotFound) {
			t.Errorf("expected ErrReferenceNotFound, got %v", err)
		}

		byArtist, total, err := store.ListWorks(ctx, WorkFilter{ArtistID: &vg.ID})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 2 || byArtist[0].Title != "The Starry Night" {
			t.Errorf("by artist: total = %d, got %v", total, byArtist)
		}

		year := 1899
		byYear, total, _ := store.ListWorks(ctx, WorkFilter{Year: &year})
		if total != 1 || byYear[0].Title != "Water Lilies" {
			t.Errorf("by year: total = %d, got %v", total, byYear)
		}

		w := works[1]
		title := "Sunflowers (Arles)"
		if err := (domain.WorkPatch{Title: &title}).Apply(w, time.Now()); err != nil {
			t.Fatalf("apply: %v", err)
		}
		if err := store.UpdateWork(ctx, w); err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := store.GetWork(ctx, w.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != title || got.ArtistID != vg.ID || got.Year == nil || *got.Year != 1888 {
			t.Errorf("got %+v", got)
		}

		if err := store.DeleteWork(ctx, w.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.DeleteWork(ctx, w.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("relationships", func(t *testing.T) {
		store := newStore(t)
		mentor := newArtist(t, "Pietro Perugino", domain.ArtistTypePainter)
		student := newArtist(t, "Raphael", domain.ArtistTypePainter)
		for _, a := range []*domain.Artist{mentor, student} {
			if err := store.CreateArtist(ctx, a); err != nil {
				t.Fatalf("create artist: %v", err)
			}
		}

		rel := domain.NewRelationship(mentor.ID, student.ID, "mentor_of", "Umbrian school")
		if err := store.CreateRelationship(ctx, rel); err != nil {
			t.Fatalf("create: %v", err)
		}
		dup := domain.NewRelationship(mentor.ID, student.ID, "mentor_of", "")
		if err := store.CreateRelationship(ctx, dup); !errors.Is(err, ErrAlreadyExists) {
			t.Errorf("expected ErrAlreadyExists, got %v", err)
		}
		dangling := domain.NewRelationship(mentor.ID, uuid.New(), "influenced", "")
		if err := store.CreateRelationship(ctx, dangling); !errors.Is(err, ErrReferenceNotFound) {
			t.Errorf("expected ErrReferenceNotFound, got %v", err)
		}

		// Связь видна с обеих сторон.
		for _, id := range []uuid.UUID{mentor.ID, student.ID} {
			rels, err := store.ListRelationships(ctx, id)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(rels) != 1 || rels[0].ID != rel.ID || rels[0].Description != "Umbrian school" {
				t.Errorf("relationships of %s: %v", id, rels)
			}
		}

		if err := store.DeleteRelationship(ctx, rel.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		rels, _ := store.ListRelationships(ctx, mentor.ID)
		if len(rels) != 0 {
			t.Errorf("expected no relationships, got %v", rels)
		}
	})

	t.Run("delete artist cascades", func(t *testing.T) {
		store := newStore(t)
		a := newArtist(t, "Edgar Degas", domain.ArtistTypePainter)
		b := newArtist(t, "Mary Cassatt", domain.ArtistTypePainter)
		for _, x := range []*domain.Artist{a, b} {
			if err := store.CreateArtist(ctx, x); err != nil {
				t.Fatalf("create artist: %v", err)
			}
		}
		w := newWork(t, a.ID, "The Dance Class", 1874)
		if err := store.CreateWork(ctx, w); err != nil {
			t.Fatalf("create work: %v", err)
		}
		if err := store.CreateRelationship(ctx, domain.NewRelationship(a.ID, b.ID, "influenced", "")); err != nil {
			t.Fatalf("create relationship: %v", err)
		}

		if err := store.DeleteArtist(ctx, a.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := store.GetWork(ctx, w.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("work must be deleted with artist, got %v", err)
		}
		rels, _ := store.ListRelationships(ctx, b.ID)
		if len(rels) != 0 {
			t.Errorf("relationships must be deleted with artist, got %v", rels)
		}
		if err := store.DeleteArtist(ctx, a.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
