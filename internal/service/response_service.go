package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"formgate/internal/cache"
	"formgate/internal/engine"
	"formgate/internal/model"
	"formgate/internal/repository"
	"formgate/internal/storage"
)

var (
	ErrResponseNotFound = errors.New("response not found")
	ErrAlreadySubmitted = errors.New("response already submitted")
	ErrUnknownQuestion  = errors.New("question is not part of this form")
	ErrNotFileQuestion  = errors.New("question does not accept files")
	ErrInvalidAnswer    = errors.New("invalid answer")
	ErrLockTimeout      = cache.ErrLockTimeout
)

// ResponseService runs the respondent lifecycle: start, save, submit.
// Saves and submits of one token are serialized through the locker.
type ResponseService struct {
	responseRepo repository.ResponseRepo
	forms        *FormService
	blobs        storage.BlobStore
	locker       cache.ResponseLocker
	stats        cache.StatsCache
	broadcaster  Broadcaster
}

// NewResponseService creates a new response service
func NewResponseService(
	responseRepo repository.ResponseRepo,
	forms *FormService,
	blobs storage.BlobStore,
	locker cache.ResponseLocker,
	stats cache.StatsCache,
) *ResponseService {
	return &ResponseService{
		responseRepo: responseRepo,
		forms:        forms,
		blobs:        blobs,
		locker:       locker,
		stats:        stats,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SaveResult is returned from every save
type SaveResult struct {
	Response   *model.Response `json:"response"`
	Visibility map[string]bool `json:"visibility"`
}

// newSessionToken returns 64 hex characters of randomness
func newSessionToken() string {
	return strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
}

// Start opens a new response for a form
func (s *ResponseService) Start(ctx context.Context, formID string) (*model.Response, error) {
	if _, err := s.forms.Get(ctx, formID); err != nil {
		return nil, err
	}

	response := &model.Response{
		FormID:       formID,
		SessionToken: newSessionToken(),
		Answers:      model.AnswerSet{},
	}
	if _, err := s.responseRepo.Create(ctx, response); err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}

	if err := s.stats.RecordStarted(ctx, formID); err != nil {
		log.Printf("Stats update failed for form %s: %v", formID, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSupervisors(formID, EventResponseStarted, map[string]interface{}{
			"responseId": response.ID,
			"formId":     formID,
			"createdAt":  response.CreatedAt,
		})
	}
	return response, nil
}

// Get returns a response by session token
func (s *ResponseService) Get(ctx context.Context, token string) (*model.Response, error) {
	response, err := s.responseRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}
	if response == nil {
		return nil, ErrResponseNotFound
	}
	return response, nil
}

// load fetches an open response and its form
func (s *ResponseService) load(ctx context.Context, token string) (*model.Response, *model.Form, error) {
	response, err := s.Get(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if response.Submitted {
		return nil, nil, ErrAlreadySubmitted
	}
	form, err := s.forms.Get(ctx, response.FormID)
	if err != nil {
		return nil, nil, err
	}
	return response, form, nil
}

func (s *ResponseService) lock(ctx context.Context, token string) (func(), error) {
	release, err := s.locker.Acquire(ctx, token)
	if err != nil {
		if errors.Is(err, cache.ErrLockTimeout) {
			log.Printf("Response lock wait timed out")
		}
		return nil, fmt.Errorf("lock response: %w", err)
	}
	return release, nil
}

// Save stores partial answers in any order. Visibility is returned for the
// client's convenience only; nothing about it is enforced until submit.
func (s *ResponseService) Save(ctx context.Context, token string, reqs []model.SaveAnswerRequest) (*SaveResult, error) {
	release, err := s.lock(ctx, token)
	if err != nil {
		return nil, err
	}
	defer release()

	response, form, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	answers := make([]model.Answer, 0, len(reqs))
	now := time.Now()
	for _, req := range reqs {
		if form.Question(req.QuestionID) == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, req.QuestionID)
		}
		if req.Answer == nil {
			return nil, fmt.Errorf("%w: no value given for question %s", ErrInvalidAnswer, req.QuestionID)
		}
		if req.Answer.IsFile() {
			return nil, fmt.Errorf("%w: files must be uploaded for question %s", ErrInvalidAnswer, req.QuestionID)
		}
		answers = append(answers, model.Answer{QuestionID: req.QuestionID, Answer: *req.Answer, UpdatedAt: now})
	}

	if err := s.store(ctx, response, answers); err != nil {
		return nil, err
	}
	return s.afterSave(response, form), nil
}

// SaveFile stores an upload as the answer to a file or photo question
func (s *ResponseService) SaveFile(ctx context.Context, token, questionID, filename, contentType string, r io.Reader) (*SaveResult, error) {
	release, err := s.lock(ctx, token)
	if err != nil {
		return nil, err
	}
	defer release()

	response, form, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}
	q := form.Question(questionID)
	if q == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if !q.Type.IsFile() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotFileQuestion, questionID, q.Type)
	}

	stored, err := s.blobs.Put(ctx, filename, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}

	answer := model.Answer{
		QuestionID: questionID,
		Answer:     model.FileAnswer(stored.Path, stored.OriginalName),
		UpdatedAt:  time.Now(),
	}
	if err := s.store(ctx, response, []model.Answer{answer}); err != nil {
		return nil, err
	}
	return s.afterSave(response, form), nil
}

func (s *ResponseService) store(ctx context.Context, response *model.Response, answers []model.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	ok, err := s.responseRepo.SaveAnswers(ctx, response.SessionToken, answers)
	if err != nil {
		return fmt.Errorf("save answers: %w", err)
	}
	if !ok {
		return ErrAlreadySubmitted
	}
	for _, a := range answers {
		response.Answers[a.QuestionID] = a
	}
	response.UpdatedAt = time.Now()
	return nil
}

func (s *ResponseService) afterSave(response *model.Response, form *model.Form) *SaveResult {
	vis := engine.ResolveVisibility(form.Questions, response.Answers)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSession(response.SessionToken, EventVisibilityUpdate, map[string]interface{}{
			"visibility": vis,
		})
	}
	return &SaveResult{Response: response, Visibility: vis}
}

// Visibility computes the current visibility from stored answers
func (s *ResponseService) Visibility(ctx context.Context, token string) (engine.Visibility, error) {
	response, err := s.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	form, err := s.forms.Get(ctx, response.FormID)
	if err != nil {
		return nil, err
	}
	return engine.ResolveVisibility(form.Questions, response.Answers), nil
}

// Submit re-evaluates the stored answers against the current schema and, if
// they pass, closes the response for good. A rejection is returned as an
// *engine.Rejection and leaves the response open.
func (s *ResponseService) Submit(ctx context.Context, token string) (*model.SubmissionResult, error) {
	release, err := s.lock(ctx, token)
	if err != nil {
		return nil, err
	}
	defer release()

	response, form, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	vis, err := engine.Evaluate(form.Questions, response.Answers)
	if err != nil {
		log.Printf("Submission for response %s rejected: %v", response.ID, err)
		return nil, err
	}

	now := time.Now()
	ok, err := s.responseRepo.MarkSubmitted(ctx, token, now)
	if err != nil {
		return nil, fmt.Errorf("mark submitted: %w", err)
	}
	if !ok {
		return nil, ErrAlreadySubmitted
	}
	response.Submitted = true
	response.SubmittedAt = &now
	response.UpdatedAt = now
	log.Printf("Response %s submitted for form %s", response.ID, form.ID)

	if err := s.stats.RecordSubmitted(ctx, form.ID); err != nil {
		log.Printf("Stats update failed for form %s: %v", form.ID, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSupervisors(form.ID, EventResponseSubmitted, map[string]interface{}{
			"responseId":  response.ID,
			"formId":      form.ID,
			"submittedAt": now,
		})
		s.broadcaster.CloseSession(token)
	}

	return &model.SubmissionResult{Response: response, Visibility: vis}, nil
}
