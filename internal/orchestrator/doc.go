// Package orchestrator выполняет задачи агентов и последовательные workflow.
//
// Orchestrator отвечает за:
//   - Поиск executor'а по типу задачи в Registry
//   - Создание записи job в статусе RUNNING до запуска executor'а
//   - Проверку input (если executor реализует agent.InputValidator)
//   - Финализацию job (SUCCESS/FAILED) и её сохранение
//   - Уведомление наблюдателей (метрики, аналитика, события MQ) и вызов хуков
//   - Преобразование ошибок executor'а в структурированный TaskOutcome
//
// Runner поверх Orchestrator выполняет шаги workflow по порядку,
// передавая output каждого шага в общий контекст и останавливаясь
// на первой ошибке.
//
// Ни RunTask, ни RunWorkflow не возвращают error: любой сбой
// выражается в TaskOutcome со статусом error.
package orchestrator
