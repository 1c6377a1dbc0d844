package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"fxtrade/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationErrorResponse - ответ 422 с пофлейдовыми ошибками
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// PageMeta - метаданные пагинации списочных ответов
type PageMeta struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PaginatedResponse - списочный ответ с пагинацией
type PaginatedResponse struct {
	Data interface{} `json:"data"`
	Meta PageMeta    `json:"meta"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondWithError(w http.ResponseWriter, status int, code, message, details string) {
	respondWithJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// respondWithValidationError отдает 422 в пофлейдовом формате
func respondWithValidationError(w http.ResponseWriter, field, message string) {
	respondWithJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
		Message: "Validation failed",
		Errors:  map[string][]string{field: {message}},
	})
}

// respondWithServiceError переводит таксономию ошибок движка в HTTP:
// ValidationError -> 422, ErrTransient -> 503, остальное -> 500
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if vErr, ok := service.AsValidationError(err); ok {
		respondWithValidationError(w, vErr.Field, vErr.Message)
		return
	}

	if errors.Is(err, service.ErrTransient) {
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, "transient_error",
			"Service temporarily unavailable, please retry", "")
		return
	}

	logger.Error("внутренняя ошибка обработки запроса", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "internal_error",
		"Internal server error", "")
}

// requestMeta извлекает метаданные запроса для аудита
func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// clientIP возвращает адрес клиента: первый hop из X-Forwarded-For
// (выставляет доверенный reverse proxy) либо RemoteAddr
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, found := strings.Cut(forwarded, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
