package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"weekPlanner/internal/logger"
	"weekPlanner/internal/service"
)

// handleBusinessError переводит бизнес-ошибку в HTTP-ответ, сохраняя
// её вид: NOT_FOUND не деградирует до generic 500, чтобы клиент знал,
// ретраить или пересинхронизироваться.
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: Бизнес-ошибка",
		zap.String("error_code", businessErr.Code),
		zap.Int("http_status", statusCode))

	responseWithJSON(w, statusCode, map[string]any{
		"error":   businessErr.Code,
		"message": businessErr.Message,
		"details": businessErr.Details,
	})
	return true
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "CONSISTENCY_FAILURE":
		return http.StatusConflict
	case "TRANSIENT_IO":
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}
