package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"formgate/internal/engine"
	"formgate/internal/service"
	"formgate/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// rejectionBody is the 422 payload for a refused submission
type rejectionBody struct {
	Error      string               `json:"error"`
	Code       engine.RejectionCode `json:"code"`
	QuestionID string               `json:"questionId"`
}

// writeServiceError maps service and engine errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	if rej, ok := engine.AsRejection(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, rejectionBody{
			Error:      rej.Error(),
			Code:       rej.Code,
			QuestionID: rej.QuestionID,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrFormNotFound),
		errors.Is(err, service.ErrQuestionNotFound),
		errors.Is(err, service.ErrResponseNotFound),
		errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted),
		errors.Is(err, service.ErrLockTimeout):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidForm),
		errors.Is(err, service.ErrUnknownQuestion),
		errors.Is(err, service.ErrNotFileQuestion),
		errors.Is(err, service.ErrInvalidAnswer):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.Printf("Request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
