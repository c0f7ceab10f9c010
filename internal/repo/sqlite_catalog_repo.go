package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
)

// sqliteCatalogSchema — таблицы каталога для SQLite.
// Внешние ключи в SQLite выключены по умолчанию, поэтому ссылки
// и каскадное удаление проверяет репозиторий.
const sqliteCatalogSchema = `
	CREATE TABLE IF NOT EXISTS artists (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		type                 TEXT NOT NULL,
		birth_date           TEXT,
		death_date           TEXT,
		nationality          TEXT,
		biography            TEXT,
		mediawiki_page_id    INTEGER UNIQUE,
		mediawiki_page_title TEXT,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_artists_name ON artists (name);

	CREATE TABLE IF NOT EXISTS works (
		id                   TEXT PRIMARY KEY,
		artist_id            TEXT NOT NULL,
		title                TEXT NOT NULL,
		year                 INTEGER,
		type                 TEXT,
		description          TEXT,
		mediawiki_page_id    INTEGER UNIQUE,
		mediawiki_page_title TEXT,
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_works_artist_id ON works (artist_id);

	CREATE TABLE IF NOT EXISTS relationships (
		id                TEXT PRIMARY KEY,
		source_artist_id  TEXT NOT NULL,
		target_artist_id  TEXT NOT NULL,
		relationship_type TEXT NOT NULL,
		description       TEXT,
		created_at        TEXT NOT NULL,
		UNIQUE (source_artist_id, target_artist_id, relationship_type)
	);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships (source_artist_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships (target_artist_id);
`

// SQLiteCatalogRepo — каталог в той же БД SQLite, что и jobs.
type SQLiteCatalogRepo struct {
	db *sql.DB
}

// NewSQLiteCatalogRepo создаёт таблицы каталога в db.
func NewSQLiteCatalogRepo(ctx context.Context, db *sql.DB) (*SQLiteCatalogRepo, error) {
	if _, err := db.ExecContext(ctx, sqliteCatalogSchema); err != nil {
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	return &SQLiteCatalogRepo{db: db}, nil
}

// --- Artists ---

func (r *SQLiteCatalogRepo) CreateArtist(ctx context.Context, a *domain.Artist) error {
	query := `INSERT INTO artists (` + artistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID.String(),
		a.Name,
		string(a.Type),
		dateText(a.BirthDate),
		dateText(a.DeathDate),
		nullText(a.Nationality),
		nullText(a.Biography),
		a.WikiPageID,
		nullText(a.WikiPageTitle),
		a.CreatedAt.UTC().Format(sqliteTimeLayout),
		a.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	return sqliteWriteError("insert artist", err)
}

func (r *SQLiteCatalogRepo) GetArtist(ctx context.Context, id uuid.UUID) (*domain.Artist, error) {
	query := `SELECT ` + artistColumns + ` FROM artists WHERE id = ?`

	a, err := scanSQLiteArtist(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *SQLiteCatalogRepo) ListArtists(ctx context.Context, filter ArtistFilter) ([]domain.Artist, int, error) {
	filter = filter.Normalize()
	where, args := buildArtistWhere(filter, sqlitePlaceholder)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count artists: %w", err)
	}

	query := `SELECT ` + artistColumns + ` FROM artists` + where +
		fmt.Sprintf(" ORDER BY name ASC, id ASC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	artists := make([]domain.Artist, 0)
	for rows.Next() {
		a, err := scanSQLiteArtist(rows)
		if err != nil {
			return nil, 0, err
		}
		artists = append(artists, *a)
	}
	return artists, total, rows.Err()
}

func (r *SQLiteCatalogRepo) UpdateArtist(ctx context.Context, a *domain.Artist) error {
	query := `
		UPDATE artists
		SET name = ?, type = ?, birth_date = ?, death_date = ?, nationality = ?,
		    biography = ?, mediawiki_page_id = ?, mediawiki_page_title = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		a.Name,
		string(a.Type),
		dateText(a.BirthDate),
		dateText(a.DeathDate),
		nullText(a.Nationality),
		nullText(a.Biography),
		a.WikiPageID,
		nullText(a.WikiPageTitle),
		a.UpdatedAt.UTC().Format(sqliteTimeLayout),
		a.ID.String(),
	)
	if err != nil {
		return sqliteWriteError("update artist", err)
	}
	return requireAffected(result)
}

// DeleteArtist удаляет артиста, его произведения и связи в одной транзакции.
func (r *SQLiteCatalogRepo) DeleteArtist(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM artists WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete artist: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM works WHERE artist_id = ?`, id.String()); err != nil {
		return fmt.Errorf("delete artist works: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM relationships WHERE source_artist_id = ? OR target_artist_id = ?`,
		id.String(), id.String(),
	); err != nil {
		return fmt.Errorf("delete artist relationships: %w", err)
	}
	return tx.Commit()
}

// --- Works ---

func (r *SQLiteCatalogRepo) CreateWork(ctx context.Context, w *domain.Work) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := artistsExist(ctx, tx, w.ArtistID); err != nil {
		return err
	}

	query := `INSERT INTO works (` + workColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		w.ID.String(),
		w.ArtistID.String(),
		w.Title,
		w.Year,
		nullText(w.Type),
		nullText(w.Description),
		w.WikiPageID,
		nullText(w.WikiPageTitle),
		w.CreatedAt.UTC().Format(sqliteTimeLayout),
		w.UpdatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return sqliteWriteError("insert work", err)
	}
	return tx.Commit()
}

func (r *SQLiteCatalogRepo) GetWork(ctx context.Context, id uuid.UUID) (*domain.Work, error) {
	query := `SELECT ` + workColumns + ` FROM works WHERE id = ?`

	w, err := scanSQLiteWork(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

func (r *SQLiteCatalogRepo) ListWorks(ctx context.Context, filter WorkFilter) ([]domain.Work, int, error) {
	filter = filter.Normalize()
	where, args := buildWorkWhere(filter, sqlitePlaceholder)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM works`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count works: %w", err)
	}

	query := `SELECT ` + workColumns + ` FROM works` + where +
		fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d", filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list works: %w", err)
	}
	defer rows.Close()

	works := make([]domain.Work, 0)
	for rows.Next() {
		w, err := scanSQLiteWork(rows)
		if err != nil {
			return nil, 0, err
		}
		works = append(works, *w)
	}
	return works, total, rows.Err()
}

func (r *SQLiteCatalogRepo) UpdateWork(ctx context.Context, w *domain.Work) error {
	query := `
		UPDATE works
		SET title = ?, year = ?, type = ?, description = ?,
		    mediawiki_page_id = ?, mediawiki_page_title = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		w.Title,
		w.Year,
		nullText(w.Type),
		nullText(w.Description),
		w.WikiPageID,
		nullText(w.WikiPageTitle),
		w.UpdatedAt.UTC().Format(sqliteTimeLayout),
		w.ID.String(),
	)
	if err != nil {
		return sqliteWriteError("update work", err)
	}
	return requireAffected(result)
}

func (r *SQLiteCatalogRepo) DeleteWork(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM works WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete work: %w", err)
	}
	return requireAffected(result)
}

// --- Relationships ---

func (r *SQLiteCatalogRepo) CreateRelationship(ctx context.Context, rel *domain.Relationship) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := artistsExist(ctx, tx, rel.SourceArtistID, rel.TargetArtistID); err != nil {
		return err
	}

	query := `INSERT INTO relationships (` + relationshipColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = tx.ExecContext(ctx, query,
		rel.ID.String(),
		rel.SourceArtistID.String(),
		rel.TargetArtistID.String(),
		rel.Type,
		nullText(rel.Description),
		rel.CreatedAt.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return sqliteWriteError("insert relationship", err)
	}
	return tx.Commit()
}

func (r *SQLiteCatalogRepo) ListRelationships(ctx context.Context, artistID uuid.UUID) ([]domain.Relationship, error) {
	query := `SELECT ` + relationshipColumns + ` FROM relationships
		WHERE source_artist_id = ? OR target_artist_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, artistID.String(), artistID.String())
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]domain.Relationship, 0)
	for rows.Next() {
		var rel domain.Relationship
		var id, source, target, createdAt string
		var description sql.NullString
		if err := rows.Scan(&id, &source, &target, &rel.Type, &description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan relationship: %w", err)
		}
		if rel.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse relationship id: %w", err)
		}
		if rel.SourceArtistID, err = uuid.Parse(source); err != nil {
			return nil, fmt.Errorf("parse source artist id: %w", err)
		}
		if rel.TargetArtistID, err = uuid.Parse(target); err != nil {
			return nil, fmt.Errorf("parse target artist id: %w", err)
		}
		if rel.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		rel.Description = description.String
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func (r *SQLiteCatalogRepo) DeleteRelationship(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM relationships WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete relationship: %w", err)
	}
	return requireAffected(result)
}

// --- Helpers ---

// artistsExist возвращает ErrReferenceNotFound, если какого-то артиста нет.
func artistsExist(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) error {
	for _, id := range ids {
		var exists bool
		err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM artists WHERE id = ?)`, id.String()).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check artist: %w", err)
		}
		if !exists {
			return ErrReferenceNotFound
		}
	}
	return nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func sqliteWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrAlreadyExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

func scanSQLiteArtist(row rowScanner) (*domain.Artist, error) {
	var a domain.Artist
	var id, artistType, createdAt, updatedAt string
	var birth, death, nationality, biography, pageTitle sql.NullString
	var pageID sql.NullInt64

	err := row.Scan(
		&id,
		&a.Name,
		&artistType,
		&birth,
		&death,
		&nationality,
		&biography,
		&pageID,
		&pageTitle,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan artist: %w", err)
	}

	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse artist id: %w", err)
	}
	a.Type = domain.ArtistType(artistType)
	if a.BirthDate, err = parseDateText(birth); err != nil {
		return nil, fmt.Errorf("parse birth_date: %w", err)
	}
	if a.DeathDate, err = parseDateText(death); err != nil {
		return nil, fmt.Errorf("parse death_date: %w", err)
	}
	a.Nationality = nationality.String
	a.Biography = biography.String
	a.WikiPageID = int64Ptr(pageID)
	a.WikiPageTitle = pageTitle.String
	if a.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if a.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &a, nil
}

func scanSQLiteWork(row rowScanner) (*domain.Work, error) {
	var w domain.Work
	var id, artistID, createdAt, updatedAt string
	var workType, description, pageTitle sql.NullString
	var year sql.NullInt64
	var pageID sql.NullInt64

	err := row.Scan(
		&id,
		&artistID,
		&w.Title,
		&year,
		&workType,
		&description,
		&pageID,
		&pageTitle,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan work: %w", err)
	}

	if w.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse work id: %w", err)
	}
	if w.ArtistID, err = uuid.Parse(artistID); err != nil {
		return nil, fmt.Errorf("parse artist id: %w", err)
	}
	if year.Valid {
		y := int(year.Int64)
		w.Year = &y
	}
	w.Type = workType.String
	w.Description = description.String
	w.WikiPageID = int64Ptr(pageID)
	w.WikiPageTitle = pageTitle.String
	if w.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if w.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &w, nil
}

func dateText(d *domain.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDateText(s sql.NullString) (*domain.Date, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := domain.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}
