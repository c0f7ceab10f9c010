package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/artwiki/internal/domain"
)

// pgCatalogSchema — таблицы каталога для PostgreSQL.
const pgCatalogSchema = `
	CREATE TABLE IF NOT EXISTS artists (
		id                   UUID PRIMARY KEY,
		name                 VARCHAR(255) NOT NULL,
		type                 VARCHAR(50)  NOT NULL,
		birth_date           DATE,
		death_date           DATE,
		nationality          VARCHAR(100),
		biography            TEXT,
		mediawiki_page_id    BIGINT UNIQUE,
		mediawiki_page_title VARCHAR(500),
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artists_name ON artists (name);
	CREATE INDEX IF NOT EXISTS idx_artists_type ON artists (type);

	CREATE TABLE IF NOT EXISTS works (
		id                   UUID PRIMARY KEY,
		artist_id            UUID NOT NULL REFERENCES artists (id) ON DELETE CASCADE,
		title                VARCHAR(500) NOT NULL,
		year                 INTEGER,
		type                 VARCHAR(100),
		description          TEXT,
		mediawiki_page_id    BIGINT UNIQUE,
		mediawiki_page_title VARCHAR(500),
		created_at           TIMESTAMPTZ NOT NULL,
		updated_at           TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_works_artist_id ON works (artist_id);
	CREATE INDEX IF NOT EXISTS idx_works_year ON works (year);

	CREATE TABLE IF NOT EXISTS relationships (
		id                UUID PRIMARY KEY,
		source_artist_id  UUID NOT NULL REFERENCES artists (id) ON DELETE CASCADE,
		target_artist_id  UUID NOT NULL REFERENCES artists (id) ON DELETE CASCADE,
		relationship_type VARCHAR(100) NOT NULL,
		description       TEXT,
		created_at        TIMESTAMPTZ NOT NULL,
		CONSTRAINT uq_relationship UNIQUE (source_artist_id, target_artist_id, relationship_type)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships (source_artist_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships (target_artist_id);
`

// CatalogRepo — каталог артистов в PostgreSQL.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

// NewCatalogRepo создаёт новый CatalogRepo.
func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// EnsureSchema создаёт таблицы каталога, если их нет.
func (r *CatalogRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgCatalogSchema); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

// --- Artists ---

// CreateArtist создаёт артиста.
func (r *CatalogRepo) CreateArtist(ctx context.Context, a *domain.Artist) error {
	query := `INSERT INTO artists (` + artistColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		string(a.Type),
		dateValue(a.BirthDate),
		dateValue(a.DeathDate),
		nullString(a.Nationality),
		nullString(a.Biography),
		a.WikiPageID,
		nullString(a.WikiPageTitle),
		a.CreatedAt,
		a.UpdatedAt,
	)
	return pgWriteError("insert artist", err)
}

// GetArtist возвращает артиста по ID.
func (r *CatalogRepo) GetArtist(ctx context.Context, id uuid.UUID) (*domain.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = $1`

	a, err := scanPgArtist(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// ListArtists возвращает страницу артистов по имени и общее число.
func (r *CatalogRepo) ListArtists(ctx context.Context, filter ArtistFilter) ([]domain.Artist, int, error) {
	filter = filter.Normalize()
	where, args := buildArtistWhere(filter, pgPlaceholder)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM artists`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count artists: %w", err)
	}

	query := `SELECT ` + artistColumns + ` FROM artists` + where +
		fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	artists := make([]domain.Artist, 0)
	for rows.Next() {
		a, err := scanPgArtist(rows)
		if err != nil {
			return nil, 0, err
		}
		artists = append(artists, *a)
	}
	return artists, total, rows.Err()
}

// UpdateArtist перезаписывает изменяемые поля артиста.
func (r *CatalogRepo) UpdateArtist(ctx context.Context, a *domain.Artist) error {
	query := `
		UPDATE artists
		SET name = $2, type = $3, birth_date = $4, death_date = $5, nationality = $6,
		    biography = $7, mediawiki_page_id = $8, mediawiki_page_title = $9, updated_at = $10
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		a.ID,
		a.Name,
		string(a.Type),
		dateValue(a.BirthDate),
		dateValue(a.DeathDate),
		nullString(a.Nationality),
		nullString(a.Biography),
		a.WikiPageID,
		nullString(a.WikiPageTitle),
		a.UpdatedAt,
	)
	if err != nil {
		return pgWriteError("update artist", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteArtist удаляет артиста; произведения и связи удаляются каскадно.
func (r *CatalogRepo) DeleteArtist(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "artists", id)
}

// --- Works ---

// CreateWork создаёт произведение.
func (r *CatalogRepo) CreateWork(ctx context.Context, w *domain.Work) error {
	query := `INSERT INTO works (` + workColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		w.ID,
		w.ArtistID,
		w.Title,
		w.Year,
		nullString(w.Type),
		nullString(w.Description),
		w.WikiPageID,
		nullString(w.WikiPageTitle),
		w.CreatedAt,
		w.UpdatedAt,
	)
	return pgWriteError("insert work", err)
}

// GetWork возвращает произведение по ID.
func (r *CatalogRepo) GetWork(ctx context.Context, id uuid.UUID) (*domain.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = $1`

	w, err := scanPgWork(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// ListWorks возвращает страницу произведений и общее число.
func (r *CatalogRepo) ListWorks(ctx context.Context, filter WorkFilter) ([]domain.Work, int, error) {
	filter = filter.Normalize()
	where, args := buildWorkWhere(filter, pgPlaceholder)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM works`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count works: %w", err)
	}

	query := `SELECT ` + workColumns + ` FROM works` + where +
		fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list works: %w", err)
	}
	defer rows.Close()

	works := make([]domain.Work, 0)
	for rows.Next() {
		w, err := scanPgWork(rows)
		if err != nil {
			return nil, 0, err
		}
		works = append(works, *w)
	}
	return works, total, rows.Err()
}

// UpdateWork перезаписывает изменяемые поля произведения.
// Артист произведения не меняется.
func (r *CatalogRepo) UpdateWork(ctx context.Context, w *domain.Work) error {
	query := `
		UPDATE works
		SET title = $2, year = $3, type = $4, description = $5,
		    mediawiki_page_id = $6, mediawiki_page_title = $7, updated_at = $8
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		w.ID,
		w.Title,
		w.Year,
		nullString(w.Type),
		nullString(w.Description),
		w.WikiPageID,
		nullString(w.WikiPageTitle),
		w.UpdatedAt,
	)
	if err != nil {
		return pgWriteError("update work", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWork удаляет произведение.
func (r *CatalogRepo) DeleteWork(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "works", id)
}

// --- Relationships ---

// CreateRelationship создаёт связь между артистами.
func (r *CatalogRepo) CreateRelationship(ctx context.Context, rel *domain.Relationship) error {
	query := `INSERT INTO relationships (` + relationshipColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		rel.ID,
		rel.SourceArtistID,
		rel.TargetArtistID,
		rel.Type,
		nullString(rel.Description),
		rel.CreatedAt,
	)
	return pgWriteError("insert relationship", err)
}

// ListRelationships возвращает связи артиста в обе стороны.
func (r *CatalogRepo) ListRelationships(ctx context.Context, artistID uuid.UUID) ([]domain.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships
		WHERE source_artist_id = $1 OR target_artist_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]domain.Relationship, 0)
	for rows.Next() {
		var rel domain.Relationship
		var description *string
		if err := rows.Scan(
			&rel.ID,
			&rel.SourceArtistID,
			&rel.TargetArtistID,
			&rel.Type,
			&description,
			&rel.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		rel.Description = derefString(description)
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

// DeleteRelationship удаляет связь.
func (r *CatalogRepo) DeleteRelationship(ctx context.Context, id uuid.UUID) error {
	return r.deleteByID(ctx, "relationships", id)
}

func (r *CatalogRepo) deleteByID(ctx context.Context, table string, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func scanPgArtist(row pgx.Row) (*domain.Artist, error) {
	var a domain.Artist
	var artistType string
	var birth, death *time.Time
	var nationality, biography, pageTitle *string

	err := row.Scan(
		&a.ID,
		&a.Name,
		&artistType,
		&birth,
		&death,
		&nationality,
		&biography,
		&a.WikiPageID,
		&pageTitle,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artist: %w", err)
	}

	a.Type = domain.ArtistType(artistType)
	a.BirthDate = dateFromTime(birth)
	a.DeathDate = dateFromTime(death)
	a.Nationality = derefString(nationality)
	a.Biography = derefString(biography)
	a.WikiPageTitle = derefString(pageTitle)
	return &a, nil
}

func scanPgWork(row pgx.Row) (*domain.Work, error) {
	var w domain.Work
	var workType, description, pageTitle *string

	err := row.Scan(
		&w.ID,
		&w.ArtistID,
		&w.Title,
		&w.Year,
		&workType,
		&description,
		&w.WikiPageID,
		&pageTitle,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan work: %w", err)
	}

	w.Type = derefString(workType)
	w.Description = derefString(description)
	w.WikiPageTitle = derefString(pageTitle)
	return &w, nil
}

// pgWriteError переводит нарушения ограничений в ошибки репозитория.
func pgWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrAlreadyExists
		case "23503":
			return ErrReferenceNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func dateValue(d *domain.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func dateFromTime(t *time.Time) *domain.Date {
	if t == nil {
		return nil
	}
	d := domain.NewDate(t.Year(), t.Month(), t.Day())
	return &d
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
