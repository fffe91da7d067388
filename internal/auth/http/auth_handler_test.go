package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authUseCase "github.com/allisson/vaultfs/internal/auth/usecase"
	"github.com/allisson/vaultfs/internal/testutil"
)

// fakeAuthUseCase scripts auth outcomes for handler tests.
type fakeAuthUseCase struct {
	registerID  uuid.UUID
	registerErr error
	loginResult *authUseCase.LoginResult
	loginErr    error
	changeErr   error

	loggedOutTokens []string
}

func (f *fakeAuthUseCase) Register(ctx context.Context, input authUseCase.RegisterInput) (uuid.UUID, error) {
	return f.registerID, f.registerErr
}

func (f *fakeAuthUseCase) Login(ctx context.Context, input authUseCase.LoginInput) (*authUseCase.LoginResult, error) {
	return f.loginResult, f.loginErr
}

func (f *fakeAuthUseCase) Logout(ctx context.Context, token string) {
	f.loggedOutTokens = append(f.loggedOutTokens, token)
}

func (f *fakeAuthUseCase) ChangePassword(ctx context.Context, token string, input authUseCase.ChangePasswordInput) error {
	return f.changeErr
}

func (f *fakeAuthUseCase) SessionTTL() time.Duration {
	return time.Hour
}

// fakeAuditLog records events for assertions.
type fakeAuditLog struct {
	events []authUseCase.AuditEvent
}

func (f *fakeAuditLog) Record(ctx context.Context, event authUseCase.AuditEvent) {
	f.events = append(f.events, event)
}

func TestAuthHandler_LoginHandler(t *testing.T) {
	t.Run("success sets cookies and returns the csrf token", func(t *testing.T) {
		session := &authDomain.Session{
			Token:     "session-token",
			UserID:    uuid.Must(uuid.NewV7()),
			CSRFToken: "csrf-token",
			ExpiresAt: time.Now().Add(time.Hour),
		}
		uc := &fakeAuthUseCase{loginResult: &authUseCase.LoginResult{Session: session}}
		audit := &fakeAuditLog{}
		handler := NewAuthHandler(uc, audit, testutil.DiscardLogger())

		router := gin.New()
		router.POST("/api/auth/login", handler.LoginHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"handle":"alice","password":"passw0rd!X"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "csrf-token", body["csrf_token"])

		cookies := w.Result().Cookies()
		byName := map[string]*http.Cookie{}
		for _, cookie := range cookies {
			byName[cookie.Name] = cookie
		}

		require.Contains(t, byName, SessionCookie)
		require.Contains(t, byName, CSRFCookie)

		// The session cookie is HttpOnly; the CSRF cookie must be readable by
		// the page script so it can echo it in the header.
		assert.True(t, byName[SessionCookie].HttpOnly)
		assert.False(t, byName[CSRFCookie].HttpOnly)
		assert.True(t, byName[SessionCookie].Secure)
		assert.Equal(t, "session-token", byName[SessionCookie].Value)
		assert.Equal(t, "csrf-token", byName[CSRFCookie].Value)

		require.Len(t, audit.events, 1)
		assert.Equal(t, authDomain.ActionLoginSuccess, audit.events[0].Action)
	})

	t.Run("bad credentials return 401 and audit a failure", func(t *testing.T) {
		uc := &fakeAuthUseCase{loginErr: authDomain.ErrBadCredentials}
		audit := &fakeAuditLog{}
		handler := NewAuthHandler(uc, audit, testutil.DiscardLogger())

		router := gin.New()
		router.POST("/api/auth/login", handler.LoginHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
			strings.NewReader(`{"handle":"alice","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "AUTH_BAD_CREDENTIALS", body["error"])

		require.Len(t, audit.events, 1)
		assert.Equal(t, authDomain.ActionLoginFailure, audit.events[0].Action)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		handler := NewAuthHandler(&fakeAuthUseCase{}, &fakeAuditLog{}, testutil.DiscardLogger())

		router := gin.New()
		router.POST("/api/auth/login", handler.LoginHandler)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_RegisterHandler(t *testing.T) {
	userID := uuid.Must(uuid.NewV7())
	uc := &fakeAuthUseCase{registerID: userID}
	handler := NewAuthHandler(uc, &fakeAuditLog{}, testutil.DiscardLogger())

	router := gin.New()
	router.POST("/api/auth/register", handler.RegisterHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"name":"Alice","handle":"alice","password":"passw0rd!X"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, userID.String(), body["user_id"])
}

func TestAuthHandler_LogoutHandler(t *testing.T) {
	uc := &fakeAuthUseCase{}
	handler := NewAuthHandler(uc, &fakeAuditLog{}, testutil.DiscardLogger())

	session := &authDomain.Session{
		Token:  "session-token",
		UserID: uuid.Must(uuid.NewV7()),
	}

	router := gin.New()
	router.POST("/api/auth/logout", func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithSession(c.Request.Context(), session))
		handler.LogoutHandler(c)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"session-token"}, uc.loggedOutTokens)
}
