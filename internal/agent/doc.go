// Package agent содержит executor'ы задач и их реестр.
//
// # Обзор
//
// Executor — единица работы, которую Orchestrator вызывает по типу задачи.
// Каждый executor:
//   - Получает input (map[string]any) — статические данные шага, поверх которых
//     наложен контекст workflow
//   - Выполняет одно действие (HTTP-запрос, генерация текста, правка вики)
//   - Возвращает output, который попадёт в job record и в контекст workflow
//
// # Интерфейс Executor
//
//	type Executor interface {
//	    Execute(ctx context.Context, input map[string]any) (map[string]any, error)
//	}
//
// Дополнительные возможности определяются через type assertion:
//   - InputValidator — проверка input до запуска (ошибка → job FAILED, Execute не вызывается)
//   - SuccessHook / FailureHook — наблюдение за результатом, ошибки хуков игнорируются
//
// # Registry
//
//	registry := agent.DefaultRegistry(agent.Deps{LLM: llmClient, Wiki: wikiClient})
//	exec, err := registry.Get("crawler")
//	if errors.Is(err, agent.ErrUnknownTaskType) {
//	    // неизвестный тип задачи
//	}
//
// Повторная регистрация типа заменяет executor (последний выигрывает).
//
// # Executor'ы
//
// ## crawler (crawler.go)
//
//	{"url": "https://example.com/artist", "artist_name": "Jane Doe", "timeout_sec": 30}
//
// Outputs: name, source_url, title, raw_html (первые 1000 символов), status_code.
//
// ## writer (writer.go)
//
//	{"artist_name": "Jane Doe", "artist_type": "painter", "source_data": {...}}
//
// Outputs: artist_name, wiki_content, format ("wikitext"), model.
//
// ## mediawiki (mediawiki.go)
//
//	{"action": "edit", "page_title": "Jane Doe", "content": "..."}
//
// Если content пуст, берётся wiki_content из контекста (результат writer'а).
// Outputs: page_title, page_id, status ("success" | "deleted").
//
// ## transform (transform.go)
//
// Копирует input и рендерит mappings через text/template:
//
//	{"mappings": {"page_title": "{{ .artist_name | trim }}"}}
//
// ## delay (delay.go)
//
//	{"duration_sec": 5}
//
// Outputs: duration_ms.
//
// # Ошибки
//
// Executor'ы оборачивают ошибки в sentinel'ы пакета:
//   - ErrInvalidInput — невалидный input
//   - ErrUpstream — ошибка внешнего сервиса
//   - ErrTimeout — превышен таймаут внешнего вызова
//
// ErrorKind(err) переводит ошибку в domain.ErrorKind* для TaskOutcome.
package agent
