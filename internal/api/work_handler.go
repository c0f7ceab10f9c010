package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

// ListWorks возвращает страницу произведений.
// GET /api/v1/works?artist_id=...&year=...&limit=...&offset=...
func (h *Handler) ListWorks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter repo.WorkFilter

	if s := q.Get("artist_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid artist_id")
			return
		}
		filter.ArtistID = &id
	}
	if s := q.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			BadRequest(w, "invalid year")
			return
		}
		filter.Year = &year
	}

	var ok bool
	if filter.Limit, ok = parseIntParam(w, q.Get("limit"), "limit"); !ok {
		return
	}
	if filter.Offset, ok = parseIntParam(w, q.Get("offset"), "offset"); !ok {
		return
	}
	filter = filter.Normalize()

	works, total, err := h.catalog.ListWorks(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	JSON(w, http.StatusOK, Page[domain.Work]{Data: works, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

// CreateWork создаёт произведение артиста.
// POST /api/v1/works
func (h *Handler) CreateWork(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	work := domain.NewWork(req.ArtistID)
	if err := req.WorkPatch.Apply(work, work.CreatedAt); HandleRepoError(w, h.logger, err, "") {
		return
	}
	if err := h.catalog.CreateWork(r.Context(), work); HandleRepoError(w, h.logger, err, "") {
		return
	}

	Created(w, work)
}

// GetWork возвращает произведение по ID.
// GET /api/v1/works/{id}
func (h *Handler) GetWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid work id")
	if !ok {
		return
	}

	work, err := h.catalog.GetWork(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "work not found") {
		return
	}

	Success(w, work)
}

// UpdateWork меняет переданные поля произведения. Артист не меняется.
// PUT /api/v1/works/{id}
func (h *Handler) UpdateWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid work id")
	if !ok {
		return
	}

	var req domain.WorkPatch
	if !decodeBody(w, r, &req) {
		return
	}

	work, err := h.catalog.GetWork(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "work not found") {
		return
	}
	if err := req.Apply(work, time.Now()); HandleRepoError(w, h.logger, err, "") {
		return
	}
	if err := h.catalog.UpdateWork(r.Context(), work); HandleRepoError(w, h.logger, err, "work not found") {
		return
	}

	Success(w, work)
}

// DeleteWork удаляет произведение.
// DELETE /api/v1/works/{id}
func (h *Handler) DeleteWork(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid work id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteWork(r.Context(), id); HandleRepoError(w, h.logger, err, "work not found") {
		return
	}

	NoContent(w)
}
