package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/cache"
	"formgate/internal/engine"
	"formgate/internal/model"
)

func startExit(t *testing.T, h *harness) (*model.Form, *model.Response) {
	t.Helper()
	ctx := context.Background()
	saved, err := h.forms.Create(ctx, exitForm())
	require.NoError(t, err)
	resp, err := h.responses.Start(ctx, saved.ID)
	require.NoError(t, err)
	return saved.Form, resp
}

func TestResponseService_Start(t *testing.T) {
	h := newHarness()
	form, resp := startExit(t, h)

	assert.Len(t, resp.SessionToken, 64)
	assert.Equal(t, model.ResponseStarted, resp.Status())
	assert.Equal(t, int64(1), h.stats.started[form.ID])
	assert.Equal(t, []string{EventResponseStarted}, h.broadcaster.supervisorTypes())

	_, err := h.responses.Start(context.Background(), "000000000000000000000000")
	assert.ErrorIs(t, err, ErrFormNotFound)
}

func TestResponseService_SaveReturnsVisibility(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	res, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(true))})
	require.NoError(t, err)
	assert.True(t, res.Visibility["q2"])
	assert.Equal(t, model.ResponseInProgress, res.Response.Status())

	require.Len(t, h.broadcaster.session, 1)
	assert.Equal(t, EventVisibilityUpdate, h.broadcaster.session[0].msgType)

	// last write wins
	res, err = h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	require.NoError(t, err)
	assert.False(t, res.Visibility["q2"])

	stored, err := h.responses.Get(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, model.Bool(false), stored.Answers["q1"].Answer.Value)
}

func TestResponseService_SaveRejectsBadInput(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("nope", model.String("x"))})
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	fileShaped := model.FileAnswer("responses/other", "x.jpg")
	_, err = h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{
		{QuestionID: "q3", Answer: &fileShaped},
	})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	_, err = h.responses.Save(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrResponseNotFound)

	stored, err := h.responses.Get(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.Empty(t, stored.Answers, "a rejected batch stores nothing")
}

func TestResponseService_SaveWithoutValueDoesNotAnswer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)
	token := resp.SessionToken

	_, err := h.responses.Save(ctx, token, []model.SaveAnswerRequest{save("q1", model.Bool(true))})
	require.NoError(t, err)

	_, err = h.responses.Save(ctx, token, []model.SaveAnswerRequest{
		save("q1", model.Bool(true)),
		{QuestionID: "q2"},
	})
	assert.ErrorIs(t, err, ErrInvalidAnswer)

	stored, err := h.responses.Get(ctx, token)
	require.NoError(t, err)
	assert.False(t, stored.Answers.Has("q2"))

	_, err = h.responses.Submit(ctx, token)
	assert.True(t, engine.IsMissingRequired(err))
	rej, ok := engine.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, "q2", rej.QuestionID)
}

func TestResponseService_SaveFile(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	res, err := h.responses.SaveFile(ctx, resp.SessionToken, "q3", "exit.jpg", "image/jpeg", strings.NewReader("jpegdata"))
	require.NoError(t, err)

	answer := res.Response.Answers["q3"].Answer
	assert.True(t, answer.IsFile())
	assert.Equal(t, "exit.jpg", answer.OriginalName)
	assert.True(t, strings.HasPrefix(answer.FilePath, "responses/"))

	rc, _, err := h.supervisor.OpenFile(ctx, answer.FilePath)
	require.NoError(t, err)
	defer rc.Close()

	_, err = h.responses.SaveFile(ctx, resp.SessionToken, "q1", "a.txt", "text/plain", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNotFileQuestion)
}

func TestResponseService_SubmitScenario(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	form, resp := startExit(t, h)
	token := resp.SessionToken

	_, err := h.responses.Save(ctx, token, []model.SaveAnswerRequest{save("q1", model.Bool(true))})
	require.NoError(t, err)

	_, err = h.responses.Submit(ctx, token)
	require.Error(t, err)
	rej, ok := engine.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, engine.CodeMissingRequired, rej.Code)
	assert.Equal(t, "q2", rej.QuestionID)

	// a rejection leaves the response open
	_, err = h.responses.Save(ctx, token, []model.SaveAnswerRequest{save("q2", model.String("box in aisle"))})
	require.NoError(t, err)

	result, err := h.responses.Submit(ctx, token)
	require.NoError(t, err)
	assert.True(t, result.Response.Submitted)
	assert.NotNil(t, result.Response.SubmittedAt)
	assert.Equal(t, map[string]bool{"q1": true, "q2": true, "q3": true}, result.Visibility)

	assert.Equal(t, int64(1), h.stats.submitted[form.ID])
	assert.Equal(t, []string{EventResponseStarted, EventResponseSubmitted}, h.broadcaster.supervisorTypes())
	assert.Equal(t, []string{token}, h.broadcaster.closed)

	_, err = h.responses.Submit(ctx, token)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	_, err = h.responses.Save(ctx, token, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestResponseService_SubmitRejectsLeakedAnswer(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	// saved in reverse order; visibility only matters at submit
	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q2", model.String("box in aisle"))})
	require.NoError(t, err)
	_, err = h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	require.NoError(t, err)

	_, err = h.responses.Submit(ctx, resp.SessionToken)
	assert.True(t, engine.IsUnexpectedAnswer(err))
}

func TestResponseService_SubmitUsesCurrentSchema(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	form, resp := startExit(t, h)

	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	require.NoError(t, err)

	// operator makes q3 required after the respondent started
	q3, _, err := h.forms.GetQuestion(ctx, "q3")
	require.NoError(t, err)
	q3.Required = true
	_, err = h.forms.UpdateQuestion(ctx, "q3", q3)
	require.NoError(t, err)

	_, err = h.responses.Submit(ctx, resp.SessionToken)
	assert.True(t, engine.IsMissingRequired(err))
	assert.Zero(t, h.stats.submitted[form.ID])
}

func TestResponseService_ConcurrentSubmitsCloseOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.responses.Submit(ctx, resp.SessionToken)
		}(i)
	}
	wg.Wait()

	var ok, already int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrAlreadySubmitted):
			already++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
}

func TestResponseService_LockTimeout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	h.locker.fail = cache.ErrLockTimeout
	_, err := h.responses.Submit(ctx, resp.SessionToken)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestResponseService_Visibility(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, resp := startExit(t, h)

	vis, err := h.responses.Visibility(ctx, resp.SessionToken)
	require.NoError(t, err)
	assert.False(t, vis.Visible("q2"), "unanswered dependency")

	_, err = h.responses.Visibility(ctx, "missing")
	assert.ErrorIs(t, err, ErrResponseNotFound)
}
