// Package worker выполняет workflow, поставленные в очередь.
//
// # Обзор
//
// Worker — stateless компонент, который потребляет сообщения
// workflow.submitted из очереди workflows.submitted, выполняет шаги
// через orchestrator.Runner и публикует итог в workflow.completed.
//
// Workers масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди.
//
//	w, err := worker.New(worker.Config{
//	    Runner:    runner,
//	    Publisher: publisher,
//	    Conn:      mqConn,
//	    Logger:    logger,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	w.Start(ctx)
//	defer w.Stop()
//
// # Подтверждение сообщений
//
//   - Некорректный payload логируется и подтверждается (ack): повтор не поможет.
//   - Если worker останавливается до начала выполнения, сообщение
//     возвращается в очередь.
//   - Начатый workflow никогда не возвращается в очередь: каждый шаг
//     уже записан в хранилище jobs, повтор создал бы дубликаты.
//     Ошибка публикации итога только логируется.
package worker
