package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

// ListArtists возвращает страницу артистов по имени.
// GET /api/v1/artists?type=...&search=...&limit=...&offset=...
func (h *Handler) ListArtists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.ArtistFilter{Search: q.Get("search")}

	if t := q.Get("type"); t != "" {
		filter.Type = domain.ArtistType(t)
		if !filter.Type.IsValid() {
			BadRequest(w, "invalid artist type")
			return
		}
	}

	var ok bool
	if filter.Limit, ok = parseIntParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = parseIntParam(w, q.Get("offset"), "offset"); !ok {
		return
	}
	filter = filter.Normalize()

	artists, total, err := h.catalog.ListArtists(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	JSON(w, http.StatusOK, Page[domain.Artist]{Data: artists, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// CreateArtist создаёт артиста.
// POST /api/v1/artists
func (h *Handler) CreateArtist(w http.ResponseWriter, r *http.Request) {
	var req domain.ArtistPatch
	if !decodeBody(w, r, &req) {
		return
	}

	artist := domain.NewArtist()
	if err := req.Apply(artist, artist.CreatedAt); HandleRepoError(w, h.logger, err, "") {
		return
	}
	if err := h.catalog.CreateArtist(r.Context(), artist); HandleRepoError(w, h.logger, err, "") {
		return
	}

	Created(w, artist)
}

// GetArtist возвращает артиста по ID.
// GET /api/v1/artists/{id}
func (h *Handler) GetArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid artist id")
	if !ok {
		return
	}

	artist, err := h.catalog.GetArtist(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}

	Success(w, artist)
}

// UpdateArtist меняет переданные поля артиста.
// PUT /api/v1/artists/{id}
func (h *Handler) UpdateArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid artist id")
	if !ok {
		return
	}

	var req domain.ArtistPatch
	if !decodeBody(w, r, &req) {
		return
	}

	artist, err := h.catalog.GetArtist(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}
	if err := req.Apply(artist, time.Now()); HandleRepoError(w, h.logger, err, "") {
		return
	}
	if err := h.catalog.UpdateArtist(r.Context(), artist); HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}

	Success(w, artist)
}

// DeleteArtist удаляет артиста вместе с произведениями и связями.
// DELETE /api/v1/artists/{id}
func (h *Handler) DeleteArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid artist id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteArtist(r.Context(), id); HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}

	NoContent(w)
}

// ListArtistJobs возвращает jobs, целью которых был артист.
// GET /api/v1/artists/{id}/jobs?limit=...&offset=...
func (h *Handler) ListArtistJobs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid artist id")
	if !ok {
		return
	}

	if _, err := h.catalog.GetArtist(r.Context(), id); HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}

	q := r.URL.Query()
	filter := repo.JobFilter{TargetID: &id}
	if filter.Limit, ok = parseIntParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = parseIntParam(w, q.Get("offset"), "offset"); !ok {
		return
	}
	filter = filter.Normalize()

	jobs, total, err := h.jobs.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	JSON(w, http.StatusOK, NewPage(jobs, JobFromDomain, total, filter.Limit, filter.Offset))
}

// ListArtistRelationships возвращает связи артиста в обе стороны.
// GET /api/v1/artists/{id}/relationships
func (h *Handler) ListArtistRelationships(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid artist id")
	if !ok {
		return
	}

	if _, err := h.catalog.GetArtist(r.Context(), id); HandleRepoError(w, h.logger, err, "artist not found") {
		return
	}

	rels, err := h.catalog.ListRelationships(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	Success(w, rels)
}

// CreateRelationship связывает двух артистов.
// POST /api/v1/relationships
func (h *Handler) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationshipRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rel := domain.NewRelationship(req.SourceArtistID, req.TargetArtistID, req.Type, req.Description)
	if err := rel.Validate(); HandleRepoError(w, h.logger, err, "") {
		return
	}
	if err := h.catalog.CreateRelationship(r.Context(), rel); HandleRepoError(w, h.logger, err, "") {
		return
	}

	Created(w, rel)
}

// DeleteRelationship удаляет связь.
// DELETE /api/v1/relationships/{id}
func (h *Handler) DeleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid relationship id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteRelationship(r.Context(), id); HandleRepoError(w, h.logger, err, "relationship not found") {
		return
	}

	NoContent(w)
}

// pathID парсит {id} из пути; при ошибке отвечает 400 с msg.
func pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, msg)
		return uuid.Nil, false
	}
	return id, true
}
