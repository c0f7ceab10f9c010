package repo

import "errors"

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — запись уже существует (конфликт уникальности).
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotRunning — job уже в финальном статусе, запись не изменена.
	ErrNotRunning = errors.New("job is not running")

	// ErrReferenceNotFound — запись ссылается на несуществующего артиста.
	ErrReferenceNotFound = errors.New("referenced artist not found")

	// ErrUnsupportedStore — DB_URL указывает на неизвестное хранилище.
	ErrUnsupportedStore = errors.New("unsupported job store")
)
