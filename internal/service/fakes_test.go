package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"formgate/internal/cache"
	"formgate/internal/model"
	"formgate/internal/storage"
)

type fakeFormRepo struct {
	mu    sync.Mutex
	forms map[string]*model.Form
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{forms: map[string]*model.Form{}}
}

func cloneForm(f *model.Form) *model.Form {
	c := *f
	c.Questions = append([]model.Question(nil), f.Questions...)
	return &c
}

func (r *fakeFormRepo) Create(_ context.Context, form *model.Form) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	form.ID = primitive.NewObjectID().Hex()
	form.CreatedAt = time.Now()
	form.UpdatedAt = form.CreatedAt
	r.forms[form.ID] = cloneForm(form)
	return form.ID, nil
}

func (r *fakeFormRepo) GetByID(_ context.Context, id string) (*model.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[id]
	if !ok {
		return nil, nil
	}
	return cloneForm(f), nil
}

func (r *fakeFormRepo) GetByQuestionID(_ context.Context, questionID string) (*model.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.forms {
		if f.Question(questionID) != nil {
			return cloneForm(f), nil
		}
	}
	return nil, nil
}

func (r *fakeFormRepo) List(_ context.Context) ([]*model.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*model.Form{}
	for _, f := range r.forms {
		out = append(out, cloneForm(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFormRepo) Update(_ context.Context, form *model.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	form.UpdatedAt = time.Now()
	r.forms[form.ID] = cloneForm(form)
	return nil
}

func (r *fakeFormRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.forms[id]
	delete(r.forms, id)
	return ok, nil
}

type fakeFormCache struct {
	mu          sync.Mutex
	forms       map[string]*model.Form
	invalidated []string
}

func newFakeFormCache() *fakeFormCache {
	return &fakeFormCache{forms: map[string]*model.Form{}}
}

func (c *fakeFormCache) Get(_ context.Context, id string) (*model.Form, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.forms[id]; ok {
		return cloneForm(f), nil
	}
	return nil, nil
}

func (c *fakeFormCache) Set(_ context.Context, form *model.Form) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forms[form.ID] = cloneForm(form)
	return nil
}

func (c *fakeFormCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.forms, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*model.Response // by token
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{responses: map[string]*model.Response{}}
}

func cloneResponse(r *model.Response) *model.Response {
	c := *r
	c.Answers = model.AnswerSet{}
	for k, v := range r.Answers {
		c.Answers[k] = v
	}
	return &c
}

func (r *fakeResponseRepo) EnsureIndexes(context.Context) error { return nil }

func (r *fakeResponseRepo) Create(_ context.Context, resp *model.Response) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp.ID = primitive.NewObjectID().Hex()
	resp.CreatedAt = time.Now()
	resp.UpdatedAt = resp.CreatedAt
	r.responses[resp.SessionToken] = cloneResponse(resp)
	return resp.ID, nil
}

func (r *fakeResponseRepo) GetByID(_ context.Context, id string) (*model.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.responses {
		if resp.ID == id {
			return cloneResponse(resp), nil
		}
	}
	return nil, nil
}

func (r *fakeResponseRepo) GetByToken(_ context.Context, token string) (*model.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[token]
	if !ok {
		return nil, nil
	}
	return cloneResponse(resp), nil
}

func (r *fakeResponseRepo) SaveAnswers(_ context.Context, token string, answers []model.Answer) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[token]
	if !ok || resp.Submitted {
		return false, nil
	}
	for _, a := range answers {
		resp.Answers[a.QuestionID] = a
	}
	return true, nil
}

func (r *fakeResponseRepo) MarkSubmitted(_ context.Context, token string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.responses[token]
	if !ok || resp.Submitted {
		return false, nil
	}
	resp.Submitted = true
	resp.SubmittedAt = &at
	return true, nil
}

func (r *fakeResponseRepo) List(_ context.Context, filter model.ResponseFilter) (*model.ResponsePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*model.Response
	for _, resp := range r.responses {
		if filter.FormID != "" && resp.FormID != filter.FormID {
			continue
		}
		if filter.Submitted != nil && resp.Submitted != *filter.Submitted {
			continue
		}
		all = append(all, cloneResponse(resp))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (filter.Page - 1) * filter.PerPage
	end := start + filter.PerPage
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	last := (len(all) + filter.PerPage - 1) / filter.PerPage
	if last < 1 {
		last = 1
	}
	return &model.ResponsePage{
		Data:        all[start:end],
		CurrentPage: filter.Page,
		PerPage:     filter.PerPage,
		Total:       int64(len(all)),
		LastPage:    last,
	}, nil
}

func (r *fakeResponseRepo) CountByForm(_ context.Context, formID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, resp := range r.responses {
		if resp.FormID == formID {
			n++
		}
	}
	return n, nil
}

// fakeLocker is a per-token mutex
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	fail  error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: map[string]*sync.Mutex{}}
}

func (l *fakeLocker) Acquire(_ context.Context, token string) (func(), error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.mu.Lock()
	m, ok := l.locks[token]
	if !ok {
		m = &sync.Mutex{}
		l.locks[token] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}

type fakeStats struct {
	mu        sync.Mutex
	started   map[string]int64
	submitted map[string]int64
}

func newFakeStats() *fakeStats {
	return &fakeStats{started: map[string]int64{}, submitted: map[string]int64{}}
}

func (s *fakeStats) RecordStarted(_ context.Context, formID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started[formID]++
	return nil
}

func (s *fakeStats) RecordSubmitted(_ context.Context, formID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted[formID]++
	return nil
}

func (s *fakeStats) Top(_ context.Context, limit int) ([]cache.FormStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cache.FormStats
	for id, n := range s.submitted {
		out = append(out, cache.FormStats{FormID: id, Started: s.started[id], Submitted: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Submitted > out[j].Submitted })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

type fakeBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: map[string][]byte{}}
}

func (b *fakeBlobs) Put(_ context.Context, name, _ string, r io.Reader) (*storage.StoredFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	path := storage.PathPrefix + primitive.NewObjectID().Hex()
	b.files[path] = data
	return &storage.StoredFile{Path: path, OriginalName: name}, nil
}

func (b *fakeBlobs) Open(_ context.Context, path string) (io.ReadCloser, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[path]
	if !ok {
		return nil, "", storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "application/octet-stream", nil
}

type event struct {
	target  string
	msgType string
	payload interface{}
}

type fakeBroadcaster struct {
	mu         sync.Mutex
	session    []event
	supervisor []event
	closed     []string
}

func (b *fakeBroadcaster) BroadcastToSession(token, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = append(b.session, event{token, msgType, payload})
}

func (b *fakeBroadcaster) BroadcastToSupervisors(formID, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.supervisor = append(b.supervisor, event{formID, msgType, payload})
}

func (b *fakeBroadcaster) CloseSession(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = append(b.closed, token)
}

func (b *fakeBroadcaster) supervisorTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, e := range b.supervisor {
		out = append(out, e.msgType)
	}
	return out
}

// harness wires the services over in-memory fakes
type harness struct {
	forms       *FormService
	responses   *ResponseService
	supervisor  *SupervisorService
	formRepo    *fakeFormRepo
	formCache   *fakeFormCache
	respRepo    *fakeResponseRepo
	locker      *fakeLocker
	stats       *fakeStats
	blobs       *fakeBlobs
	broadcaster *fakeBroadcaster
}

func newHarness() *harness {
	h := &harness{
		formRepo:    newFakeFormRepo(),
		formCache:   newFakeFormCache(),
		respRepo:    newFakeResponseRepo(),
		locker:      newFakeLocker(),
		stats:       newFakeStats(),
		blobs:       newFakeBlobs(),
		broadcaster: &fakeBroadcaster{},
	}
	h.forms = NewFormService(h.formRepo, h.formCache)
	h.responses = NewResponseService(h.respRepo, h.forms, h.blobs, h.locker, h.stats)
	h.responses.SetBroadcaster(h.broadcaster)
	h.supervisor = NewSupervisorService(h.respRepo, h.forms, h.blobs, h.stats)
	return h
}

func boolRule(dependsOn string, v bool) *model.ConditionalRule {
	return &model.ConditionalRule{DependsOn: dependsOn, Operator: model.OperatorEquals, CompareValue: model.Bool(v)}
}

// exitForm is the blocked-exit pair used throughout the tests
func exitForm() *model.Form {
	return &model.Form{
		Name: "Safety Procedure Check",
		Questions: []model.Question{
			{ID: "q1", Text: "Are there objects blocking emergency exits?", Type: model.QuestionTypeBoolean, Order: 1, Required: true},
			{ID: "q2", Text: "Describe the obstruction", Type: model.QuestionTypeText, Order: 2, Required: true, Rule: boolRule("q1", true)},
			{ID: "q3", Text: "Photo of the exit", Type: model.QuestionTypePhoto, Order: 3},
		},
	}
}

func save(id string, v model.Scalar) model.SaveAnswerRequest {
	answer := model.ScalarAnswer(v)
	return model.SaveAnswerRequest{QuestionID: id, Answer: &answer}
}
