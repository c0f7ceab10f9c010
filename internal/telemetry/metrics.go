package telemetry

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaiso/artwiki/internal/domain"
)

// Метки исхода workflow.
const (
	WorkflowOutcomeSuccess = "success"
	WorkflowOutcomeFailed  = "failed"
)

// JobMetrics — Prometheus-метрики выполнения задач и workflow.
//
// Реализует orchestrator.Observer. Ошибки регистрации пишутся в лог
// и не пробрасываются: метрики не должны ломать выполнение.
type JobMetrics struct {
	jobsTotal      *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	workflowsTotal *prometheus.CounterVec
	workflowSteps  prometheus.Histogram

	logger *slog.Logger
}

// NewJobMetrics создаёт метрики и регистрирует их в reg.
func NewJobMetrics(reg prometheus.Registerer, logger *slog.Logger) *JobMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	m := &JobMetrics{logger: logger}

	m.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artwiki_jobs_total",
		Help: "Total number of finished jobs by task type and status.",
	}, []string{"task_type", "status"})

	m.jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artwiki_job_duration_seconds",
		Help:    "Executor run time in seconds.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"task_type"})

	m.workflowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artwiki_workflows_total",
		Help: "Total number of workflow runs by outcome.",
	}, []string{"outcome"})

	m.workflowSteps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "artwiki_workflow_steps",
		Help:    "Number of steps executed per workflow run.",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})

	m.register(reg, m.jobsTotal, "artwiki_jobs_total")
	m.register(reg, m.jobDuration, "artwiki_job_duration_seconds")
	m.register(reg, m.workflowsTotal, "artwiki_workflows_total")
	m.register(reg, m.workflowSteps, "artwiki_workflow_steps")

	return m
}

// register регистрирует коллектор, ошибки только логируются.
func (m *JobMetrics) register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if reg == nil {
		return
	}
	if err := reg.Register(c); err != nil {
		m.logger.Warn("failed to register metric", "metric", name, "error", err)
	}
}

// JobFinished учитывает завершённый job.
func (m *JobMetrics) JobFinished(_ context.Context, job *domain.Job) error {
	m.jobsTotal.WithLabelValues(job.TaskType, job.Status.String()).Inc()
	if job.StartedAt != nil && job.CompletedAt != nil {
		m.jobDuration.WithLabelValues(job.TaskType).Observe(job.Duration().Seconds())
	}
	return nil
}

// WorkflowFinished учитывает завершённый workflow.
func (m *JobMetrics) WorkflowFinished(result *domain.WorkflowResult) {
	outcome := WorkflowOutcomeSuccess
	if result.Failed() {
		outcome = WorkflowOutcomeFailed
	}
	m.workflowsTotal.WithLabelValues(outcome).Inc()
	m.workflowSteps.Observe(float64(len(result.Results)))
}
