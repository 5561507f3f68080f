package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/bogdankharchenko/linear-agent/internal/api/dto"
	"github.com/bogdankharchenko/linear-agent/internal/apperrors"
)

// InvalidType - код ошибки транспортного уровня: тело не прочитано
// или не разобрано, до доменной логики дело не дошло.
type InvalidType string

// InvalidRequest - некорректный запрос.
const InvalidRequest InvalidType = "INVALID_REQUEST"

// respondJSON пишет тело ответа как JSON. Ошибка кодирования после
// WriteHeader уже не исправима, поэтому только логируется.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

// respondError пишет ошибку в обёртке dto.ErrorResponse.
func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Code:    code,
			Message: message,
		},
	}); err != nil {
		log.Printf("failed to encode error response: %v", err)
	}
}

// respondAppError отдаёт доменную ошибку с её HTTP-статусом.
func respondAppError(w http.ResponseWriter, err *apperrors.AppError) {
	respondError(w, err.HTTPStatus(), string(err.Code), err.Message)
}
