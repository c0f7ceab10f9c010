// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (orchestrator, runner, хранилище jobs, publisher, logger)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - workflow_handler.go — обработчики для /workflows
//   - task_handler.go     — обработчики для /tasks и /agents
//   - job_handler.go      — обработчики для /jobs
//   - artist_handler.go   — обработчики для /artists и /relationships
//   - work_handler.go     — обработчики для /works
//   - stats_handler.go    — счётчики jobs (/stats/jobs)
//
// API даёт синхронный и асинхронный запуск workflow, запуск одной
// задачи, чтение записей jobs и каталог художников и работ.
package api
