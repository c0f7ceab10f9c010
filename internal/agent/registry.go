package agent

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/shaiso/artwiki/internal/llm"
)

// Типы задач, регистрируемые DefaultRegistry.
const (
	TaskTypeCrawler   = "crawler"
	TaskTypeWriter    = "writer"
	TaskTypeMediaWiki = "mediawiki"
	TaskTypeTransform = "transform"
	TaskTypeDelay     = "delay"
)

// Registry — реестр executor'ов по типу задачи.
//
// Потокобезопасен: регистрация может идти параллельно с поиском.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
	logger    *slog.Logger
}

// Deps — зависимости executor'ов по умолчанию.
type Deps struct {
	// LLM — клиент для writer. Если nil, writer возвращает ошибку при вызове.
	LLM llm.Completer

	// Wiki — клиент MediaWiki. Если nil, mediawiki возвращает ошибку при вызове.
	Wiki WikiClient

	// Crawler — настройки crawler'а.
	Crawler CrawlerConfig

	Logger *slog.Logger
}

// NewRegistry создаёт пустой реестр.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		executors: make(map[string]Executor),
		logger:    logger,
	}
}

// DefaultRegistry создаёт реестр со всеми стандартными executor'ами.
//
// Регистрирует: crawler, writer, mediawiki, transform, delay.
func DefaultRegistry(deps Deps) *Registry {
	r := NewRegistry(deps.Logger)

	r.Register(TaskTypeCrawler, NewCrawlerExecutor(deps.Crawler, deps.Logger))
	r.Register(TaskTypeWriter, NewWriterExecutor(deps.LLM, deps.Logger))
	r.Register(TaskTypeMediaWiki, NewMediaWikiExecutor(deps.Wiki, deps.Logger))
	r.Register(TaskTypeTransform, NewTransformExecutor(deps.Logger))
	r.Register(TaskTypeDelay, NewDelayExecutor(deps.Logger))

	return r
}

// Register добавляет executor для типа задачи.
// Если тип уже зарегистрирован, executor будет заменён.
func (r *Registry) Register(taskType string, executor Executor) {
	r.mu.Lock()
	_, replaced := r.executors[taskType]
	r.executors[taskType] = executor
	r.mu.Unlock()

	if replaced {
		r.logger.Warn("executor replaced", "task_type", taskType)
		return
	}
	r.logger.Debug("executor registered", "task_type", taskType)
}

// Get возвращает executor для типа задачи.
// Возвращает ErrUnknownTaskType, если тип не зарегистрирован.
func (r *Registry) Get(taskType string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	executor, ok := r.executors[taskType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	return executor, nil
}

// Has проверяет, зарегистрирован ли тип задачи.
func (r *Registry) Has(taskType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[taskType]
	return ok
}

// Types возвращает отсортированный список зарегистрированных типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.executors))
	for t := range r.executors {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
