package handlers

import (
	"net/http"
	"testing"

	"time-tracking-api/internal/auth"
	"time-tracking-api/internal/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func authRouter(t *testing.T) *gin.Engine {
	t.Helper()
	newTestRouter(t)
	r := gin.New()
	r.POST("/api/register", Register)
	r.POST("/api/login", Login)
	return r
}

func TestRegisterThenLogin(t *testing.T) {
	r := authRouter(t)

	w := send(t, r, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	reg := decode[LoginResponse](t, w)
	require.NotEmpty(t, reg.Token)

	var stored struct{ Password string }
	require.NoError(t, database.GetDB().Table("users").Select("password").Where("id = ?", reg.UserID).Scan(&stored).Error)
	require.NotEqual(t, "secret1", stored.Password)

	w = send(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[LoginResponse](t, w)
	claims, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, reg.UserID, claims.UserID)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	r := authRouter(t)
	body := map[string]string{"username": "alice", "password": "secret1"}
	require.Equal(t, http.StatusCreated, send(t, r, http.MethodPost, "/api/register", "", body).Code)
	require.Equal(t, http.StatusBadRequest, send(t, r, http.MethodPost, "/api/register", "", body).Code)
}

func TestRegisterShortPassword(t *testing.T) {
	r := authRouter(t)
	w := send(t, r, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "123"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r := authRouter(t)
	require.Equal(t, http.StatusCreated, send(t, r, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "secret1"}).Code)

	w := send(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong-pass"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = send(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "nobody", "password": "secret1"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	w = send(t, r, http.MethodPost, "/api/login", "", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterStoresName(t *testing.T) {
	r := authRouter(t)

	w := send(t, r, http.MethodPost, "/api/register", "", map[string]string{"username": "alice", "password": "secret1", "name": "Alice L"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = send(t, r, http.MethodPost, "/api/register", "", map[string]string{"username": "bob", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)

	var names []string
	require.NoError(t, database.GetDB().Table("users").Order("username asc").Pluck("name", &names).Error)
	require.Equal(t, []string{"Alice L", "bob"}, names)
}
