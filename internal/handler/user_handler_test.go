package handler

import (
	"net/http"
	"testing"
	"time"

	"oneflow/internal/service"
	"oneflow/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_SetsCookie(t *testing.T) {
	svc := &stubUserService{login: &service.LoginResponse{
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      service.UserResponse{ID: 1, Email: "a@x.io"},
	}}
	r := newRouter(NewUserHandler(svc))

	w := call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.io", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "access_token", cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLogin_Failures(t *testing.T) {
	r := newRouter(NewUserHandler(&stubUserService{err: apperror.Unauthorized("invalid email or password")}))

	w := call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@x.io", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decode(t, w).Error)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "not-an-email", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "email must be a valid email")

	w = call(t, r, http.MethodPost, "/api/auth/login", "", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupAndMe(t *testing.T) {
	r := newRouter(NewUserHandler(&stubUserService{}))

	w := call(t, r, http.MethodPost, "/api/auth/signup", "", map[string]string{"name": "Lan", "email": "lan@x.io", "password": "secret1"})
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, http.StatusUnauthorized, call(t, r, http.MethodGet, "/api/auth/me", "", nil).Code)
	w = call(t, r, http.MethodGet, "/api/auth/me", "team_member", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(7), decode(t, w).Data.(map[string]interface{})["id"])
}

func TestUpdateRole_AdminOnly(t *testing.T) {
	r := newRouter(NewUserHandler(&stubUserService{}))
	body := map[string]string{"role": "project_manager"}

	assert.Equal(t, http.StatusForbidden, call(t, r, http.MethodPut, "/api/users/3/role", "project_manager", body).Code)

	w := call(t, r, http.MethodPut, "/api/users/3/role", "admin", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "project_manager", decode(t, w).Data.(map[string]interface{})["role"])

	w = call(t, r, http.MethodPut, "/api/users/3/role", "admin", map[string]string{"role": "owner"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error, "role must be one of")
}

func TestLogout_ClearsCookie(t *testing.T) {
	r := newRouter(NewUserHandler(&stubUserService{}))

	w := call(t, r, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
