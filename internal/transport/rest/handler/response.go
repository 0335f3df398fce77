package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/service"
)

// Responder is the respondent lifecycle surface
type Responder interface {
	Start(ctx context.Context, formID string) (*model.Response, error)
	Get(ctx context.Context, token string) (*model.Response, error)
	Save(ctx context.Context, token string, reqs []model.SaveAnswerRequest) (*service.SaveResult, error)
	SaveFile(ctx context.Context, token, questionID, filename, contentType string, r io.Reader) (*service.SaveResult, error)
	Visibility(ctx context.Context, token string) (engine.Visibility, error)
	Submit(ctx context.Context, token string) (*model.SubmissionResult, error)
}

// ResponseHandler handles respondent endpoints. The session token in the
// path is the respondent's only credential.
type ResponseHandler struct {
	responseSvc    Responder
	maxUploadBytes int64
}

// NewResponseHandler creates a new response handler
func NewResponseHandler(responseSvc Responder, maxUploadBytes int64) *ResponseHandler {
	return &ResponseHandler{
		responseSvc:    responseSvc,
		maxUploadBytes: maxUploadBytes,
	}
}

// StartRequest is the request body for opening a response
type StartRequest struct {
	FormID string `json:"formId"`
}

// SaveRequest is the request body for a partial save
type SaveRequest struct {
	Answers []model.SaveAnswerRequest `json:"answers"`
}

// Start handles POST /v1/responses/start
func (h *ResponseHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FormID == "" {
		writeError(w, http.StatusBadRequest, "formId is required")
		return
	}

	resp, err := h.responseSvc.Start(r.Context(), req.FormID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Get handles GET /v1/responses/{token}
func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.responseSvc.Get(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Save handles POST /v1/responses/{token}/save
func (h *ResponseHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, a := range req.Answers {
		if a.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId is required")
			return
		}
		if a.Answer == nil {
			writeError(w, http.StatusBadRequest, "answer value is required")
			return
		}
	}

	res, err := h.responseSvc.Save(r.Context(), mux.Vars(r)["token"], req.Answers)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UploadFile handles POST /v1/responses/{token}/answers/{questionId}/file
func (h *ResponseHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.responseSvc.SaveFile(r.Context(), vars["token"], vars["questionId"], header.Filename, contentType, file)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Visibility handles GET /v1/responses/{token}/visibility
func (h *ResponseHandler) Visibility(w http.ResponseWriter, r *http.Request) {
	vis, err := h.responseSvc.Visibility(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"visibility": vis})
}

// Submit handles POST /v1/responses/{token}/submit
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.responseSvc.Submit(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
