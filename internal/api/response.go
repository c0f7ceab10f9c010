package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shaiso/artwiki/internal/domain"
	"github.com/shaiso/artwiki/internal/repo"
)

// maxBodyBytes — ограничение на размер тела запроса.
const maxBodyBytes = 1 << 20

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeConflict      ErrorCode = "CONFLICT"
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnavailable   ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorResponse — тело ответа с ошибкой: {"error": {"code", "message"}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// DataResponse — тело успешного ответа: {"data": ...}.
type DataResponse struct {
	Data any `json:"data"`
}

// Page — страница списка: {"data": [...], "total", "limit", "offset"}.
type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewPage конвертирует страницу доменных объектов через conv.
func NewPage[S, T any](items []S, conv func(S) T, total, limit, offset int) Page[T] {
	data := make([]T, len(items))
	for i, item := range items {
		data[i] = conv(item)
	}
	return Page[T]{Data: data, Total: total, Limit: limit, Offset: offset}
}

// JSON отправляет v со статусом status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Success отправляет {"data": data} со статусом 200.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет {"data": data} со статусом 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// Accepted отправляет {"data": data} со статусом 202.
func Accepted(w http.ResponseWriter, data any) {
	JSON(w, http.StatusAccepted, DataResponse{Data: data})
}

// NoContent отправляет пустой ответ 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// ServiceUnavailable отправляет ошибку 503.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, ErrCodeUnavailable, message)
}

// InternalError логирует err и отправляет 500 без деталей.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// storeErrors — ошибки хранилищ, которые отдаются клиенту как есть.
var storeErrors = []struct {
	err    error
	status int
	code   ErrorCode
}{
	{repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{repo.ErrAlreadyExists, http.StatusConflict, ErrCodeConflict},
	{repo.ErrReferenceNotFound, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidEntity, http.StatusBadRequest, ErrCodeBadRequest},
}

// HandleRepoError отвечает по ошибке хранилища и возвращает true,
// если err != nil. notFoundMsg заменяет текст для ErrNotFound.
func HandleRepoError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) bool {
	if err == nil {
		return false
	}
	for _, se := range storeErrors {
		if !errors.Is(err, se.err) {
			continue
		}
		msg := err.Error()
		if se.err == repo.ErrNotFound && notFoundMsg != "" {
			msg = notFoundMsg
		}
		Error(w, se.status, se.code, msg)
		return true
	}
	InternalError(w, logger, err)
	return true
}

// decodeBody разбирает JSON тело в dst; при ошибке отвечает 400.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF):
		BadRequest(w, "request body is empty")
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			BadRequest(w, "request body is too large")
		} else {
			BadRequest(w, "invalid request body")
		}
	}
	return false
}
