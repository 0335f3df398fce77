package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/service"
)

// FormAdmin is the form and question administration surface
type FormAdmin interface {
	Create(ctx context.Context, form *model.Form) (*service.FormWithWarnings, error)
	Get(ctx context.Context, id string) (*model.Form, error)
	List(ctx context.Context) ([]model.FormSummary, error)
	Update(ctx context.Context, id string, form *model.Form) (*service.FormWithWarnings, error)
	Delete(ctx context.Context, id string) error
	Lint(ctx context.Context, id string) ([]engine.Issue, error)

	ListQuestions(ctx context.Context, formID string) ([]model.Question, error)
	AddQuestion(ctx context.Context, formID string, q *model.Question) (*service.QuestionWithWarnings, error)
	GetQuestion(ctx context.Context, questionID string) (*model.Question, string, error)
	UpdateQuestion(ctx context.Context, questionID string, q *model.Question) (*service.QuestionWithWarnings, error)
	DeleteQuestion(ctx context.Context, questionID string) ([]engine.Issue, error)
}

// FormHandler handles form and question endpoints
type FormHandler struct {
	formSvc FormAdmin
}

// NewFormHandler creates a new form handler
func NewFormHandler(formSvc FormAdmin) *FormHandler {
	return &FormHandler{formSvc: formSvc}
}

// FormRequest is the request body for creating or replacing a form
type FormRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Questions   []model.Question `json:"questions"`
}

func (req *FormRequest) form() *model.Form {
	return &model.Form{
		Name:        req.Name,
		Description: req.Description,
		Questions:   req.Questions,
	}
}

// List handles GET /v1/forms
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.formSvc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

// Get handles GET /v1/forms/{formId}
func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	form, err := h.formSvc.Get(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	form.Questions = model.SortQuestions(form.Questions)
	writeJSON(w, http.StatusOK, form)
}

// Create handles POST /v1/forms
func (h *FormHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.formSvc.Create(r.Context(), req.form())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// Update handles PUT /v1/forms/{formId}
func (h *FormHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req FormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.formSvc.Update(r.Context(), mux.Vars(r)["formId"], req.form())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete handles DELETE /v1/forms/{formId}
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.formSvc.Delete(r.Context(), mux.Vars(r)["formId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Lint handles GET /v1/forms/{formId}/lint
func (h *FormHandler) Lint(w http.ResponseWriter, r *http.Request) {
	issues, err := h.formSvc.Lint(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": issues})
}

// ListQuestions handles GET /v1/forms/{formId}/questions
func (h *FormHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.formSvc.ListQuestions(r.Context(), mux.Vars(r)["formId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

// AddQuestion handles POST /v1/forms/{formId}/questions
func (h *FormHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.formSvc.AddQuestion(r.Context(), mux.Vars(r)["formId"], &q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetQuestion handles GET /v1/questions/{questionId}
func (h *FormHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	q, formID, err := h.formSvc.GetQuestion(r.Context(), mux.Vars(r)["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"question": q, "formId": formID})
}

// UpdateQuestion handles PUT /v1/questions/{questionId}
func (h *FormHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var q model.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.formSvc.UpdateQuestion(r.Context(), mux.Vars(r)["questionId"], &q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// DeleteQuestion handles DELETE /v1/questions/{questionId}
func (h *FormHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	issues, err := h.formSvc.DeleteQuestion(r.Context(), mux.Vars(r)["questionId"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"warnings": issues})
}
