package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidEntity — сущность каталога не прошла проверку.
var ErrInvalidEntity = errors.New("invalid entity")

// Типы целей job'ов, которые ведёт каталог.
const (
	TargetTypeArtist       = "artist"
	TargetTypeWork         = "work"
	TargetTypeRelationship = "relationship"
)

// ArtistType — вид творчества артиста.
type ArtistType string

const (
	ArtistTypePainter  ArtistType = "painter"
	ArtistTypeWriter   ArtistType = "writer"
	ArtistTypeMusician ArtistType = "musician"
)

// IsValid проверяет, что тип входит в допустимый набор.
func (t ArtistType) IsValid() bool {
	switch t {
	case ArtistTypePainter, ArtistTypeWriter, ArtistTypeMusician:
		return true
	default:
		return false
	}
}

const dateLayout = "2006-01-02"

// Date — календарная дата без времени. В JSON: "1853-03-30".
type Date struct {
	time.Time
}

// NewDate создаёт Date в UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate парсит дату в формате YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON кодирует дату как "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON принимает "YYYY-MM-DD".
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	*d = parsed
	return nil
}

// Artist — артист каталога.
type Artist struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Type        ArtistType `json:"type"`
	BirthDate   *Date      `json:"birth_date,omitempty"`
	DeathDate   *Date      `json:"death_date,omitempty"`
	Nationality string     `json:"nationality,omitempty"`
	Biography   string     `json:"biography,omitempty"`

	// WikiPageID и WikiPageTitle связывают артиста со страницей MediaWiki.
	WikiPageID    *int64 `json:"mediawiki_page_id,omitempty"`
	WikiPageTitle string `json:"mediawiki_page_title,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewArtist создаёт пустого артиста с новым ID.
func NewArtist() *Artist {
	now := time.Now().UTC()
	return &Artist{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Validate проверяет обязательные поля и ограничения длины.
func (a *Artist) Validate() error {
	if err := checkText("name", a.Name, 1, 255); err != nil {
		return err
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: type must be painter, writer or musician", ErrInvalidEntity)
	}
	if err := checkText("nationality", a.Nationality, 0, 100); err != nil {
		return err
	}
	if err := checkText("mediawiki_page_title", a.WikiPageTitle, 0, 500); err != nil {
		return err
	}
	if a.BirthDate != nil && a.DeathDate != nil && a.DeathDate.Before(a.BirthDate.Time) {
		return fmt.Errorf("%w: death_date is before birth_date", ErrInvalidEntity)
	}
	return nil
}

// ArtistPatch — частичное изменение артиста. nil поля не меняются.
type ArtistPatch struct {
	Name          *string     `json:"name"`
	Type          *ArtistType `json:"type"`
	BirthDate     *Date       `json:"birth_date"`
	DeathDate     *Date       `json:"death_date"`
	Nationality   *string     `json:"nationality"`
	Biography     *string     `json:"biography"`
	WikiPageID    *int64      `json:"mediawiki_page_id"`
	WikiPageTitle *string     `json:"mediawiki_page_title"`
}

// Apply применяет изменения к a и проверяет результат.
func (p ArtistPatch) Apply(a *Artist, now time.Time) error {
	if p.Name != nil {
		a.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	if p.BirthDate != nil {
		a.BirthDate = p.BirthDate
	}
	if p.DeathDate != nil {
		a.DeathDate = p.DeathDate
	}
	setString(&a.Nationality, p.Nationality)
	setString(&a.Biography, p.Biography)
	if p.WikiPageID != nil {
		a.WikiPageID = p.WikiPageID
	}
	setString(&a.WikiPageTitle, p.WikiPageTitle)
	a.UpdatedAt = now.UTC()
	return a.Validate()
}

// Work — произведение артиста.
type Work struct {
	ID          uuid.UUID `json:"id"`
	ArtistID    uuid.UUID `json:"artist_id"`
	Title       string    `json:"title"`
	Year        *int      `json:"year,omitempty"`
	Type        string    `json:"type,omitempty"`
	Description string    `json:"description,omitempty"`

	WikiPageID    *int64 `json:"mediawiki_page_id,omitempty"`
	WikiPageTitle string `json:"mediawiki_page_title,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewWork создаёт пустое произведение артиста artistID.
func NewWork(artistID uuid.UUID) *Work {
	now := time.Now().UTC()
	return &Work{ID: uuid.New(), ArtistID: artistID, CreatedAt: now, UpdatedAt: now}
}

// Validate проверяет обязательные поля и ограничения длины.
func (w *Work) Validate() error {
	if w.ArtistID == uuid.Nil {
		return fmt.Errorf("%w: artist_id is required", ErrInvalidEntity)
	}
	if err := checkText("title", w.Title, 1, 500); err != nil {
		return err
	}
	if err := checkText("type", w.Type, 0, 100); err != nil {
		return err
	}
	return checkText("mediawiki_page_title", w.WikiPageTitle, 0, 500)
}

// WorkPatch — частичное изменение произведения.
type WorkPatch struct {
	Title         *string `json:"title"`
	Year          *int    `json:"year"`
	Type          *string `json:"type"`
	Description   *string `json:"description"`
	WikiPageID    *int64  `json:"mediawiki_page_id"`
	WikiPageTitle *string `json:"mediawiki_page_title"`
}

// Apply применяет изменения к w и проверяет результат.
func (p WorkPatch) Apply(w *Work, now time.Time) error {
	if p.Title != nil {
		w.Title = strings.TrimSpace(*p.Title)
	}
	if p.Year != nil {
		w.Year = p.Year
	}
	setString(&w.Type, p.Type)
	setString(&w.Description, p.Description)
	if p.WikiPageID != nil {
		w.WikiPageID = p.WikiPageID
	}
	setString(&w.WikiPageTitle, p.WikiPageTitle)
	w.UpdatedAt = now.UTC()
	return w.Validate()
}

// Relationship — направленная связь между артистами
// ("influenced", "mentor_of", ...). Пара артистов и тип уникальны.
type Relationship struct {
	ID             uuid.UUID `json:"id"`
	SourceArtistID uuid.UUID `json:"source_artist_id"`
	TargetArtistID uuid.UUID `json:"target_artist_id"`
	Type           string    `json:"relationship_type"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRelationship создаёт связь source → target.
func NewRelationship(source, target uuid.UUID, relType, description string) *Relationship {
	return &Relationship{
		ID:             uuid.New(),
		SourceArtistID: source,
		TargetArtistID: target,
		Type:           strings.TrimSpace(relType),
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	}
}

// Validate проверяет обе стороны связи и тип.
func (r *Relationship) Validate() error {
	if r.SourceArtistID == uuid.Nil || r.TargetArtistID == uuid.Nil {
		return fmt.Errorf("%w: source_artist_id and target_artist_id are required", ErrInvalidEntity)
	}
	if r.SourceArtistID == r.TargetArtistID {
		return fmt.Errorf("%w: artist cannot relate to itself", ErrInvalidEntity)
	}
	return checkText("relationship_type", r.Type, 1, 100)
}

func checkText(field, value string, minLen, maxLen int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n < minLen && minLen == 1:
		return fmt.Errorf("%w: %s is required", ErrInvalidEntity, field)
	case n < minLen:
		return fmt.Errorf("%w: %s must be at least %d characters", ErrInvalidEntity, field, minLen)
	case n > maxLen:
		return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidEntity, field, maxLen)
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
