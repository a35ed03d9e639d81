package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"oneflow/internal/middleware"
	"oneflow/internal/service"
	"oneflow/internal/workflow"
	"oneflow/pkg/response"
	"oneflow/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handler-secret")

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret(testSecret)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
}

type routes interface {
	RegisterRoutes(router *gin.RouterGroup)
}

func newRouter(handlers ...routes) *gin.Engine {
	r := gin.New()
	api := r.Group("/api")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return r
}

// call performs a request as a user with the given role. An empty role sends no token.
func call(t *testing.T, r http.Handler, method, path, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		raw, _, err := token.Issuer{Secret: testSecret, Expiry: time.Hour}.Issue(7, role, time.Now())
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+raw)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var res response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res
}

// --- stubs ---

type decideCall struct {
	id, action string
	actorID    uint
}

type stubApprovalService struct {
	items   []service.QueueItem
	export  []byte
	err     error
	decided []decideCall
}

func (s *stubApprovalService) ListQueue(context.Context) ([]service.QueueItem, error) {
	return s.items, s.err
}

func (s *stubApprovalService) ExportQueue(context.Context) ([]byte, error) {
	return s.export, s.err
}

func (s *stubApprovalService) Decide(_ context.Context, rawID, rawAction string, actorID uint) (*service.DecisionResult, error) {
	s.decided = append(s.decided, decideCall{rawID, rawAction, actorID})
	if s.err != nil {
		return nil, s.err
	}
	return &service.DecisionResult{ID: rawID, Action: rawAction, Status: "confirmed"}, nil
}

func (s *stubApprovalService) ReviewExpense(_ context.Context, rawID, status string, actorID uint) (*service.DecisionResult, error) {
	s.decided = append(s.decided, decideCall{rawID, status, actorID})
	if s.err != nil {
		return nil, s.err
	}
	return &service.DecisionResult{ID: rawID, Status: status}, nil
}

type createCall struct {
	kind    workflow.Kind
	actorID uint
	req     service.CreateDocumentRequest
}

type stubBillingService struct {
	created []createCall
	deleted []workflow.Kind
	err     error
}

func (s *stubBillingService) Create(_ context.Context, kind workflow.Kind, actorID uint, req service.CreateDocumentRequest) (*service.DocumentResponse, error) {
	s.created = append(s.created, createCall{kind, actorID, req})
	if s.err != nil {
		return nil, s.err
	}
	return &service.DocumentResponse{ID: 1, Type: string(kind), ReferenceNo: req.ReferenceNo}, nil
}

func (s *stubBillingService) Get(_ context.Context, kind workflow.Kind, id uint) (*service.DocumentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.DocumentResponse{ID: id, Type: string(kind)}, nil
}

func (s *stubBillingService) List(_ context.Context, kind workflow.Kind, page, limit int) ([]service.DocumentResponse, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return []service.DocumentResponse{{ID: 1, Type: string(kind)}}, 1, nil
}

func (s *stubBillingService) Update(_ context.Context, kind workflow.Kind, id, _ uint, _ service.UpdateDocumentRequest) (*service.DocumentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.DocumentResponse{ID: id, Type: string(kind)}, nil
}

func (s *stubBillingService) Delete(_ context.Context, kind workflow.Kind, _, _ uint) error {
	s.deleted = append(s.deleted, kind)
	return s.err
}

type stubUserService struct {
	login *service.LoginResponse
	err   error
}

func (s *stubUserService) Signup(_ context.Context, req service.SignupRequest) (*service.UserResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.UserResponse{ID: 1, Name: req.Name, Email: req.Email, Role: "team_member"}, nil
}

func (s *stubUserService) Login(context.Context, service.LoginRequest) (*service.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubUserService) GetByID(_ context.Context, id uint) (*service.UserResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.UserResponse{ID: id}, nil
}

func (s *stubUserService) List(context.Context, int, int) ([]service.UserResponse, int64, error) {
	return []service.UserResponse{}, 0, s.err
}

func (s *stubUserService) UpdateRole(_ context.Context, id, _ uint, role string) (*service.UserResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &service.UserResponse{ID: id, Role: role}, nil
}

func (s *stubUserService) EnsureAdmin(context.Context, service.AdminSeed) error { return s.err }
