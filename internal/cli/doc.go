// Package cli реализует инструмент командной строки artwiki.
//
// # Обзор
//
// CLI — клиентская утилита для работы с artwiki API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI запускает workflow и задачи, показывает агентов и jobs.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для artwiki API. Инкапсулирует HTTP-запросы,
// парсинг ответов (data, страница списка, error)
// и обработку ошибок (APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	page, err := client.ListJobs(ctx, cli.ListJobsOpts{Status: "failed"})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: artwiki job list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - workflow: run (--file, --context, --async)
//   - task: run
//   - agent: list
//   - job: list, show
//
// Каждая группа создаётся через фабричную функцию (NewJobCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
