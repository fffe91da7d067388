package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/vaultfs/internal/errors"
	"github.com/allisson/vaultfs/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantTag    string
	}{
		{"bad credentials", apperrors.ErrBadCredentials, http.StatusUnauthorized, "AUTH_BAD_CREDENTIALS"},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized, "AUTH_REQUIRED"},
		{"csrf", apperrors.ErrCSRFInvalid, http.StatusForbidden, "AUTH_CSRF_INVALID"},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden, "AUTH_FORBIDDEN"},
		{"not found", apperrors.ErrNotFound, http.StatusNotFound, "UPLOAD_NOT_FOUND"},
		{"conflict", apperrors.ErrConflict, http.StatusConflict, "CONFLICT_DUPLICATE_HANDLE"},
		{"quota", apperrors.ErrQuotaExceeded, http.StatusRequestEntityTooLarge, "QUOTA_EXCEEDED"},
		{"wrong state", apperrors.ErrWrongState, http.StatusConflict, "UPLOAD_WRONG_STATE"},
		{"rate limited", apperrors.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"integrity", apperrors.ErrIntegrity, http.StatusInternalServerError, "INTEGRITY_FAILURE"},
		{"validation", apperrors.ErrInvalidInput, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown", apperrors.New("boom"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			HandleErrorGin(c, tt.err, testutil.DiscardLogger())

			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantTag, body.Error)
		})
	}
}

func TestHandleErrorGin_WrappedErrorsKeepTheirTag(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	err := apperrors.Wrap(apperrors.Wrap(apperrors.ErrQuotaExceeded, "reserve"), "init upload")
	HandleErrorGin(c, err, testutil.DiscardLogger())

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandleErrorGin_InternalHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleErrorGin(c, apperrors.New("pq: syntax error near SELECT"), testutil.DiscardLogger())

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL", body.Error)
	assert.NotContains(t, body.Message, "pq:")
}
