// Package reaper закрывает брошенные jobs.
//
// Job остаётся в RUNNING, если процесс упал во время Execute или
// финальная запись в хранилище не удалась. Reaper по cron-расписанию
// находит RUNNING jobs старше StaleAfter и переводит их в FAILED
// с ошибкой "abandoned: ...".
//
// Структура:
//   - reaper.go — Reaper (Run, Tick, reap)
//   - cron.go   — парсинг cron-выражений и значения по умолчанию
//
// Использование:
//
//	r, err := reaper.New(reaper.Config{
//	    Store:      store,
//	    Observers:  []reaper.Observer{metrics}, // опционально
//	    Schedule:   "*/5 * * * *",
//	    StaleAfter: time.Hour,
//	    Logger:     logger,
//	})
//	go r.Run(ctx)
//
// StaleAfter должен быть больше TASK_TIMEOUT + STORE_TIMEOUT, иначе
// Reaper закроет ещё выполняющийся job.
package reaper
