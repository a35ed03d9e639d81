package handler

import (
	"errors"
	"net/http"
	"testing"

	"oneflow/internal/service"
	"oneflow/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListQueue(t *testing.T) {
	svc := &stubApprovalService{items: []service.QueueItem{{ID: "so_1", Type: "sales_order"}, {ID: "4", Type: "expense"}}}
	r := newRouter(NewApprovalHandler(svc))

	w := call(t, r, http.MethodGet, "/api/expenses/pm-expenses", "project_manager", nil)
	require.Equal(t, http.StatusOK, w.Code)

	res := decode(t, w)
	assert.Equal(t, "success", res.Status)
	items := res.Data.([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "so_1", items[0].(map[string]interface{})["id"])
}

func TestListQueue_Forbidden(t *testing.T) {
	r := newRouter(NewApprovalHandler(&stubApprovalService{}))

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/expenses/pm-expenses", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodGet, "/api/expenses/pm-expenses", "team_member", nil).Code)
}

func TestDecide(t *testing.T) {
	svc := &stubApprovalService{}
	r := newRouter(NewApprovalHandler(svc))

	w := call(t, r, http.MethodPut, "/api/expenses/so_12/pm-approve", "admin", map[string]string{"action": "approve"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.decided, 1)
	assert.Equal(t, decideCall{"so_12", "approve", 7}, svc.decided[0])
}

func TestDecide_MissingAction(t *testing.T) {
	svc := &stubApprovalService{}
	r := newRouter(NewApprovalHandler(svc))

	w := call(t, r, http.MethodPut, "/api/expenses/so_12/pm-approve", "admin", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request payload: action is required", decode(t, w).Error)
	assert.Empty(t, svc.decided)
}

func TestDecide_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"not found", apperror.NotFound("Sales Order not found"), http.StatusNotFound, "Sales Order not found"},
		{"invalid", apperror.InvalidInput("invalid request", errors.New("bad ref")), http.StatusBadRequest, "invalid request: bad ref"},
		{"conflict", apperror.Conflict("cannot approve", nil), http.StatusConflict, "cannot approve"},
		{"store down", apperror.Persistence("failed to update", errors.New("conn reset")), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(NewApprovalHandler(&stubApprovalService{err: tt.err}))

			w := call(t, r, http.MethodPut, "/api/expenses/so_1/pm-approve", "project_manager", map[string]string{"action": "approve"})
			assert.Equal(t, tt.status, w.Code)

			res := decode(t, w)
			assert.Equal(t, "error", res.Status)
			assert.Equal(t, tt.status, res.StatusCode)
			assert.Equal(t, tt.msg, res.Error)
		})
	}
}

func TestReviewExpense(t *testing.T) {
	svc := &stubApprovalService{}
	r := newRouter(NewApprovalHandler(svc))

	w := call(t, r, http.MethodPut, "/api/expenses/9/approve", "project_manager", map[string]string{"status": "rejected"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, decideCall{"9", "rejected", 7}, svc.decided[0])
}

func TestExportQueue(t *testing.T) {
	r := newRouter(NewApprovalHandler(&stubApprovalService{export: []byte("PK-data")}))

	w := call(t, r, http.MethodGet, "/api/expenses/pm-expenses/export", "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "pm-expenses.xlsx")
	assert.Equal(t, "PK-data", w.Body.String())
}
