package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// MemoryCatalogRepo — CatalogStore в памяти процесса.
type MemoryCatalogRepo struct {
	mu            sync.RWMutex
	artists       map[uuid.UUID]domain.Artist
	works         map[uuid.UUID]domain.Work
	relationships map[uuid.UUID]domain.Relationship
}

// NewMemoryCatalogRepo создаёт пустой каталог.
func NewMemoryCatalogRepo() *MemoryCatalogRepo {
	return &MemoryCatalogRepo{
		artists:       make(map[uuid.UUID]domain.Artist),
		works:         make(map[uuid.UUID]domain.Work),
		relationships: make(map[uuid.UUID]domain.Relationship),
	}
}

// --- Artists ---

func (r *MemoryCatalogRepo) CreateArtist(_ context.Context, a *domain.Artist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artists[a.ID]; exists {
		return ErrAlreadyExists
	}
	if r.artistPageTaken(a.ID, a.WikiPageID) {
		return ErrAlreadyExists
	}
	r.artists[a.ID] = cloneArtist(a)
	return nil
}

func (r *MemoryCatalogRepo) GetArtist(_ context.Context, id uuid.UUID) (*domain.Artist, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.artists[id]
	if !exists {
		return nil, ErrNotFound
	}
	a := cloneArtist(&stored)
	return &a, nil
}

func (r *MemoryCatalogRepo) ListArtists(_ context.Context, filter ArtistFilter) ([]domain.Artist, int, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	matched := make([]domain.Artist, 0, len(r.artists))
	for _, a := range r.artists {
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if !matchesSearch(a.Name, filter.Search) {
			continue
		}
		matched = append(matched, cloneArtist(&a))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *MemoryCatalogRepo) UpdateArtist(_ context.Context, a *domain.Artist) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.artists[a.ID]
	if !exists {
		return ErrNotFound
	}
	if r.artistPageTaken(a.ID, a.WikiPageID) {
		return ErrAlreadyExists
	}
	updated := cloneArtist(a)
	updated.CreatedAt = stored.CreatedAt
	r.artists[a.ID] = updated
	return nil
}

// DeleteArtist удаляет артиста вместе с его произведениями и связями.
func (r *MemoryCatalogRepo) DeleteArtist(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.artists[id]; !exists {
		return ErrNotFound
	}
	delete(r.artists, id)
	for wid, w := range r.works {
		if w.ArtistID == id {
			delete(r.works, wid)
		}
	}
	for rid, rel := range r.relationships {
		if rel.SourceArtistID == id || rel.TargetArtistID == id {
			delete(r.relationships, rid)
		}
	}
	return nil
}

func (r *MemoryCatalogRepo) artistPageTaken(id uuid.UUID, pageID *int64) bool {
	if pageID == nil {
		return false
	}
	for _, other := range r.artists {
		if other.ID != id && other.WikiPageID != nil && *other.WikiPageID == *pageID {
			return true
		}
	}
	return false
}

// --- Works ---

func (r *MemoryCatalogRepo) CreateWork(_ context.Context, w *domain.Work) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.works[w.ID]; exists {
		return ErrAlreadyExists
	}
	if _, exists := r.artists[w.ArtistID]; !exists {
		return ErrReferenceNotFound
	}
	if r.workPageTaken(w.ID, w.WikiPageID) {
		return ErrAlreadyExists
	}
	r.works[w.ID] = cloneWork(w)
	return nil
}

func (r *MemoryCatalogRepo) GetWork(_ context.Context, id uuid.UUID) (*domain.Work, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, exists := r.works[id]
	if !exists {
		return nil, ErrNotFound
	}
	w := cloneWork(&stored)
	return &w, nil
}

func (r *MemoryCatalogRepo) ListWorks(_ context.Context, filter WorkFilter) ([]domain.Work, int, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	matched := make([]domain.Work, 0, len(r.works))
	for _, w := range r.works {
		if filter.ArtistID != nil && w.ArtistID != *filter.ArtistID {
			continue
		}
		if filter.Year != nil && (w.Year == nil || *w.Year != *filter.Year) {
			continue
		}
		matched = append(matched, cloneWork(&w))
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return page(matched, filter.Limit, filter.Offset), len(matched), nil
}

func (r *MemoryCatalogRepo) UpdateWork(_ context.Context, w *domain.Work) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.works[w.ID]
	if !exists {
		return ErrNotFound
	}
	if r.workPageTaken(w.ID, w.WikiPageID) {
		return ErrAlreadyExists
	}
	updated := cloneWork(w)
	updated.ArtistID = stored.ArtistID
	updated.CreatedAt = stored.CreatedAt
	r.works[w.ID] = updated
	return nil
}

func (r *MemoryCatalogRepo) DeleteWork(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.works[id]; !exists {
		return ErrNotFound
	}
	delete(r.works, id)
	return nil
}

func (r *MemoryCatalogRepo) workPageTaken(id uuid.UUID, pageID *int64) bool {
	if pageID == nil {
		return false
	}
	for _, other := range r.works {
		if other.ID != id && other.WikiPageID != nil && *other.WikiPageID == *pageID {
			return true
		}
	}
	return false
}

// --- Relationships ---

func (r *MemoryCatalogRepo) CreateRelationship(_ context.Context, rel *domain.Relationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.relationships[rel.ID]; exists {
		return ErrAlreadyExists
	}
	_, sourceOK := r.artists[rel.SourceArtistID]
	_, targetOK := r.artists[rel.TargetArtistID]
	if !sourceOK || !targetOK {
		return ErrReferenceNotFound
	}
	for _, other := range r.relationships {
		if other.SourceArtistID == rel.SourceArtistID &&
			other.TargetArtistID == rel.TargetArtistID &&
			other.Type == rel.Type {
			return ErrAlreadyExists
		}
	}
	r.relationships[rel.ID] = *rel
	return nil
}

func (r *MemoryCatalogRepo) ListRelationships(_ context.Context, artistID uuid.UUID) ([]domain.Relationship, error) {
	r.mu.RLock()
	rels := make([]domain.Relationship, 0)
	for _, rel := range r.relationships {
		if rel.SourceArtistID == artistID || rel.TargetArtistID == artistID {
			rels = append(rels, rel)
		}
	}
	r.mu.RUnlock()

	sort.Slice(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID.String() < rels[j].ID.String()
	})
	return rels, nil
}

func (r *MemoryCatalogRepo) DeleteRelationship(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.relationships[id]; !exists {
		return ErrNotFound
	}
	delete(r.relationships, id)
	return nil
}

// --- Helpers ---

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	return items[offset:min(offset+limit, len(items))]
}

func cloneArtist(a *domain.Artist) domain.Artist {
	c := *a
	c.BirthDate = clonePtr(a.BirthDate)
	c.DeathDate = clonePtr(a.DeathDate)
	c.WikiPageID = clonePtr(a.WikiPageID)
	return c
}

func cloneWork(w *domain.Work) domain.Work {
	c := *w
	c.Year = clonePtr(w.Year)
	c.WikiPageID = clonePtr(w.WikiPageID)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
