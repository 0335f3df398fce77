package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"formgate/internal/cache"
	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/repository"
)

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidForm      = errors.New("invalid form")
)

// FormService handles form and question administration. Questions are
// stored inside their form, so every question edit rewrites the schema.
type FormService struct {
	formRepo  repository.FormRepo
	formCache cache.FormCache
}

// NewFormService creates a new form service
func NewFormService(formRepo repository.FormRepo, formCache cache.FormCache) *FormService {
	return &FormService{
		formRepo:  formRepo,
		formCache: formCache,
	}
}

// FormWithWarnings is a saved form plus the lint issues found in it
type FormWithWarnings struct {
	*model.Form
	Warnings []engine.Issue `json:"warnings"`
}

// QuestionWithWarnings is a saved question plus the lint issues of its form
type QuestionWithWarnings struct {
	Question *model.Question `json:"question"`
	FormID   string          `json:"formId"`
	Warnings []engine.Issue  `json:"warnings"`
}

func withWarnings(form *model.Form) *FormWithWarnings {
	issues := engine.Lint(form.Questions)
	if issues == nil {
		issues = []engine.Issue{}
	}
	return &FormWithWarnings{Form: form, Warnings: issues}
}

func checkForm(form *model.Form) error {
	if strings.TrimSpace(form.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidForm)
	}
	if len(form.Name) > 255 {
		return fmt.Errorf("%w: name is longer than 255 characters", ErrInvalidForm)
	}
	seen := make(map[string]struct{}, len(form.Questions))
	for i := range form.Questions {
		if err := checkQuestion(&form.Questions[i]); err != nil {
			return err
		}
		id := form.Questions[i].ID
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: question id %q is used more than once", ErrInvalidForm, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func checkQuestion(q *model.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidForm)
	}
	if q.ID == "" {
		q.ID = primitive.NewObjectID().Hex()
	}
	if strings.ContainsAny(q.ID, ".$") {
		return fmt.Errorf("%w: question id %q may not contain '.' or '$'", ErrInvalidForm, q.ID)
	}
	return nil
}

// Create validates and stores a new form
func (s *FormService) Create(ctx context.Context, form *model.Form) (*FormWithWarnings, error) {
	if err := checkForm(form); err != nil {
		return nil, err
	}
	if _, err := s.formRepo.Create(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	log.Printf("Form %s created with %d questions", form.ID, len(form.Questions))
	return withWarnings(form), nil
}

// Get returns a form, served from cache when possible
func (s *FormService) Get(ctx context.Context, id string) (*model.Form, error) {
	if cached, err := s.formCache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	} else if err != nil {
		log.Printf("Form cache read failed for %s: %v", id, err)
	}

	form, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if form == nil {
		return nil, ErrFormNotFound
	}

	if err := s.formCache.Set(ctx, form); err != nil {
		log.Printf("Form cache write failed for %s: %v", id, err)
	}
	return form, nil
}

// List returns summaries of every form, newest first
func (s *FormService) List(ctx context.Context) ([]model.FormSummary, error) {
	forms, err := s.formRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	out := make([]model.FormSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, model.FormSummary{
			ID:            f.ID,
			Name:          f.Name,
			Description:   f.Description,
			QuestionCount: len(f.Questions),
			UpdatedAt:     f.UpdatedAt,
		})
	}
	return out, nil
}

// Update replaces a form's name, description and questions
func (s *FormService) Update(ctx context.Context, id string, form *model.Form) (*FormWithWarnings, error) {
	existing, err := s.formRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if existing == nil {
		return nil, ErrFormNotFound
	}
	if err := checkForm(form); err != nil {
		return nil, err
	}

	existing.Name = form.Name
	existing.Description = form.Description
	existing.Questions = form.Questions
	if existing.Questions == nil {
		existing.Questions = []model.Question{}
	}
	if err := s.save(ctx, existing); err != nil {
		return nil, err
	}
	return withWarnings(existing), nil
}

// Delete removes a form
func (s *FormService) Delete(ctx context.Context, id string) error {
	ok, err := s.formRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if !ok {
		return ErrFormNotFound
	}
	s.invalidate(ctx, id)
	log.Printf("Form %s deleted", id)
	return nil
}

// Lint returns schema warnings for a stored form
func (s *FormService) Lint(ctx context.Context, id string) ([]engine.Issue, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return withWarnings(form).Warnings, nil
}

// ListQuestions returns a form's questions in evaluation order
func (s *FormService) ListQuestions(ctx context.Context, formID string) ([]model.Question, error) {
	form, err := s.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	return model.SortQuestions(form.Questions), nil
}

// AddQuestion appends a question to a form
func (s *FormService) AddQuestion(ctx context.Context, formID string, q *model.Question) (*QuestionWithWarnings, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	if err := checkQuestion(q); err != nil {
		return nil, err
	}
	if form.Question(q.ID) != nil {
		return nil, fmt.Errorf("%w: question id %q already exists in this form", ErrInvalidForm, q.ID)
	}

	form.Questions = append(form.Questions, *q)
	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return &QuestionWithWarnings{Question: q, FormID: form.ID, Warnings: withWarnings(form).Warnings}, nil
}

// GetQuestion finds a question by id across forms
func (s *FormService) GetQuestion(ctx context.Context, questionID string) (*model.Question, string, error) {
	form, err := s.formByQuestion(ctx, questionID)
	if err != nil {
		return nil, "", err
	}
	return form.Question(questionID), form.ID, nil
}

// UpdateQuestion replaces a question in place, keeping its id
func (s *FormService) UpdateQuestion(ctx context.Context, questionID string, q *model.Question) (*QuestionWithWarnings, error) {
	form, err := s.formByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	q.ID = questionID
	if err := checkQuestion(q); err != nil {
		return nil, err
	}

	*form.Question(questionID) = *q
	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return &QuestionWithWarnings{Question: q, FormID: form.ID, Warnings: withWarnings(form).Warnings}, nil
}

// DeleteQuestion removes a question. Rules that depended on it are left
// as they are and show up as lint warnings.
func (s *FormService) DeleteQuestion(ctx context.Context, questionID string) ([]engine.Issue, error) {
	form, err := s.formByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}

	kept := form.Questions[:0]
	for _, q := range form.Questions {
		if q.ID != questionID {
			kept = append(kept, q)
		}
	}
	form.Questions = kept
	if err := s.save(ctx, form); err != nil {
		return nil, err
	}
	return withWarnings(form).Warnings, nil
}

func (s *FormService) formByQuestion(ctx context.Context, questionID string) (*model.Form, error) {
	form, err := s.formRepo.GetByQuestionID(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("load form: %w", err)
	}
	if form == nil {
		return nil, ErrQuestionNotFound
	}
	return form, nil
}

func (s *FormService) save(ctx context.Context, form *model.Form) error {
	if err := s.formRepo.Update(ctx, form); err != nil {
		return fmt.Errorf("update form: %w", err)
	}
	s.invalidate(ctx, form.ID)
	return nil
}

func (s *FormService) invalidate(ctx context.Context, id string) {
	if err := s.formCache.Invalidate(ctx, id); err != nil {
		log.Printf("Form cache invalidate failed for %s: %v", id, err)
	}
}
