package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

// ListJobs возвращает страницу jobs, новые первыми.
// GET /api/v1/jobs?status=...&task_type=...&target_id=...&limit=...&offset=...
//
// job_type принимается как синоним task_type.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repo.JobFilter{TaskType: q.Get("task_type")}
	if filter.TaskType == "" {
		filter.TaskType = q.Get("job_type")
	}

	if s := q.Get("status"); s != "" {
		status, ok := domain.ParseJobStatus(s)
		if !ok {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = &status
	}

	if s := q.Get("target_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			BadRequest(w, "invalid target_id")
			return
		}
		filter.TargetID = &id
	}

	var ok bool
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

// GetJob возвращает job по ID.
// GET /api/v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "job not found") {
		return
	}

	Success(w, JobFromDomain(*job))
}

// parseIntParam парсит необязательный неотрицательный параметр запроса.
func parseIntParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		BadRequest(w, "invalid "+name)
		return 0, false
	}
	return n, true
}
