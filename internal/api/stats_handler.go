package api

import (
	"net/http"
	"time"

	"github.com/shaiso/artwiki/internal/domain"
)

// JobStats возвращает счётчики завершённых jobs одного типа за окно,
// содержащее момент at (по умолчанию сейчас).
// GET /api/v1/stats/jobs?task_type=...&at=2026-01-02T15:04:05Z
func (h *Handler) JobStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		ServiceUnavailable(w, "job counters are not configured")
		return
	}

	q := r.URL.Query()
	taskType := q.Get("task_type")
	if taskType == "" {
		BadRequest(w, "task_type is required")
		return
	}

	at := time.Now()
	if s := q.Get("at"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			BadRequest(w, "at must be RFC3339")
			return
		}
		at = parsed
	}

	resp := JobStatsResponse{TaskType: taskType, At: at.UTC(), Counts: make(map[string]int64)}
	for _, status := range []domain.JobStatus{domain.JobStatusSuccess, domain.JobStatusFailed} {
		n, err := h.stats.Count(r.Context(), taskType, status, at)
		if err != nil {
			InternalError(w, h.logger, err)
			return
		}
		resp.Counts[status.String()] = n
	}

	Success(w, resp)
}
