package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// CatalogStore — хранилище артистов, произведений и связей между артистами.
//
// Удаление артиста удаляет его произведения и связи.
// Ссылка на несуществующего артиста — ErrReferenceNotFound.
type CatalogStore interface {
	CreateArtist(ctx context.Context, a *domain.Artist) error
	GetArtist(ctx context.Context, id uuid.UUID) (*domain.Artist, error)
	ListArtists(ctx context.Context, filter ArtistFilter) ([]domain.Artist, int, error)
	UpdateArtist(ctx context.Context, a *domain.Artist) error
	DeleteArtist(ctx context.Context, id uuid.UUID) error

	CreateWork(ctx context.Context, w *domain.Work) error
	GetWork(ctx context.Context, id uuid.UUID) (*domain.Work, error)
	ListWorks(ctx context.Context, filter WorkFilter) ([]domain.Work, int, error)
	UpdateWork(ctx context.Context, w *domain.Work) error
	DeleteWork(ctx context.Context, id uuid.UUID) error

	CreateRelationship(ctx context.Context, r *domain.Relationship) error
	// ListRelationships возвращает связи, где артист — источник или цель.
	ListRelationships(ctx context.Context, artistID uuid.UUID) ([]domain.Relationship, error)
	DeleteRelationship(ctx context.Context, id uuid.UUID) error
}

// ArtistFilter — фильтр списка артистов. Порядок: по имени.
type ArtistFilter struct {
	Type domain.ArtistType
	// Search — подстрока имени без учёта регистра.
	Search string
	Limit  int
	Offset int
}

// Normalize приводит пагинацию к допустимым значениям.
func (f ArtistFilter) Normalize() ArtistFilter {
	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// WorkFilter — фильтр списка произведений. Порядок: по времени создания.
type WorkFilter struct {
	ArtistID *uuid.UUID
	Year     *int
	Limit    int
	Offset   int
}

// Normalize приводит пагинацию к допустимым значениям.
func (f WorkFilter) Normalize() WorkFilter {
	f.Limit, f.Offset = normalizePage(f.Limit, f.Offset)
	return f
}

func normalizePage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return limit, max(offset, 0)
}

const artistColumns = `
	id, name, type, birth_date, death_date, nationality, biography,
	mediawiki_page_id, mediawiki_page_title, created_at, updated_at
`

const workColumns = `
	id, artist_id, title, year, type, description,
	mediawiki_page_id, mediawiki_page_title, created_at, updated_at
`

const relationshipColumns = `
	id, source_artist_id, target_artist_id, relationship_type, description, created_at
`

func buildArtistWhere(filter ArtistFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conditions = append(conditions, "type = "+placeholder(len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		conditions = append(conditions, "LOWER(name) LIKE "+placeholder(len(args))+` ESCAPE '\'`)
	}
	return joinWhere(conditions), args
}

func buildWorkWhere(filter WorkFilter, placeholder func(n int) string) (string, []any) {
	var conditions []string
	var args []any

	if filter.ArtistID != nil {
		args = append(args, filter.ArtistID.String())
		conditions = append(conditions, "artist_id = "+placeholder(len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conditions = append(conditions, "year = "+placeholder(len(args)))
	}
	return joinWhere(conditions), args
}

func joinWhere(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern: "van_g" → "%van\_g%" (в нижнем регистре).
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// matchesSearch — то же условие, что LOWER(name) LIKE likePattern(search).
func matchesSearch(name, search string) bool {
	return search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(search))
}
