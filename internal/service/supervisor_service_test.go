package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formgate/internal/model"
	"formgate/internal/storage"
)

func TestSupervisorService_ListPaginates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	saved, err := h.forms.Create(ctx, exitForm())
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, err := h.responses.Start(ctx, saved.ID)
		require.NoError(t, err)
	}

	page, err := h.supervisor.List(ctx, model.ResponseFilter{FormID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, SupervisorPerPage, page.PerPage)
	assert.Len(t, page.Data, 15)
	assert.Equal(t, int64(20), page.Total)
	assert.Equal(t, 2, page.LastPage)

	page, err = h.supervisor.List(ctx, model.ResponseFilter{FormID: saved.ID, Page: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)

	submitted := true
	page, err = h.supervisor.List(ctx, model.ResponseFilter{Submitted: &submitted})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
}

func TestSupervisorService_GetDetail(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	form, resp := startExit(t, h)

	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(true))})
	require.NoError(t, err)

	detail, err := h.supervisor.Get(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseInProgress, detail.Status)
	assert.Equal(t, form.ID, detail.Form.ID)
	assert.True(t, detail.Visibility["q2"])

	// deleted form still shows the raw response
	require.NoError(t, h.forms.Delete(ctx, form.ID))
	detail, err = h.supervisor.Get(ctx, resp.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Form)
	assert.Nil(t, detail.Visibility)

	_, err = h.supervisor.Get(ctx, "000000000000000000000000")
	assert.ErrorIs(t, err, ErrResponseNotFound)
}

func TestSupervisorService_StatsAndFiles(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	form, resp := startExit(t, h)

	_, err := h.responses.Save(ctx, resp.SessionToken, []model.SaveAnswerRequest{save("q1", model.Bool(false))})
	require.NoError(t, err)
	_, err = h.responses.Submit(ctx, resp.SessionToken)
	require.NoError(t, err)

	stats, err := h.supervisor.Stats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, form.ID, stats[0].FormID)
	assert.Equal(t, int64(1), stats[0].Started)
	assert.Equal(t, int64(1), stats[0].Submitted)

	_, _, err = h.supervisor.OpenFile(ctx, "responses/000000000000000000000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
