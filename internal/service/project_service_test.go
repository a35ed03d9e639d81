package service

import (
	"context"
	"testing"

	"oneflow/internal/model"
	"oneflow/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProjectService(t *testing.T) {
	m := newMemStore()
	svc := NewProjectService(fakeProjectRepo{m}, fakeUserRepo{m}, fakeAuditRepo{m}, stagingTx{m}, zap.NewNop())
	pm := &model.User{Name: "Minh", Email: "pm@x.io", Role: model.RoleProjectManager}
	require.NoError(t, fakeUserRepo{m}.Create(context.Background(), pm))

	created, err := svc.Create(context.Background(), 1, CreateProjectRequest{Title: "ERP rollout", ManagerID: &pm.ID})
	require.NoError(t, err)
	require.NotNil(t, created.Manager)
	assert.Equal(t, "Minh", created.Manager.Name)
	assert.Equal(t, model.ActionCreateProject, m.audits[0].Action)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ERP rollout", got.Title)

	_, err = svc.Create(context.Background(), 1, CreateProjectRequest{Title: "X", ManagerID: uintPtr(999)})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = svc.Create(context.Background(), 1, CreateProjectRequest{Title: "   "})
	assert.Equal(t, apperror.KindInvalidInput, apperror.KindOf(err))

	_, err = svc.Get(context.Background(), 999)
	assert.Equal(t, "Project not found", apperror.Message(err))

	list, total, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, list, 1)
}
