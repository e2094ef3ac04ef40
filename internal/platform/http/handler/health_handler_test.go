package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func sessionOf(open bool, err error) SessionFunc {
	return func(ctx context.Context) (bool, error) { return open, err }
}

// TestHealth はフィード状態とセッション開閉の報告、およびメソッドごとの応答を検証します。
func TestHealth(t *testing.T) {
	t.Parallel()

	streaming := func() string { return "streaming" }

	tests := []struct {
		name         string
		method       string
		state        StateFunc
		session      SessionFunc
		expectedCode int
		expectedBody string
	}{
		{
			name:         "open session while streaming",
			method:       http.MethodGet,
			state:        streaming,
			session:      sessionOf(true, nil),
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ok","feed":"streaming","session":"open"}`,
		},
		{
			name:         "closed session while reconnecting",
			method:       http.MethodGet,
			state:        func() string { return "connecting" },
			session:      sessionOf(false, nil),
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ok","feed":"connecting","session":"closed"}`,
		},
		{
			name:         "calendar failure reports unknown",
			method:       http.MethodGet,
			state:        streaming,
			session:      sessionOf(false, errors.New("invalid session format")),
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ok","feed":"streaming","session":"unknown"}`,
		},
		{
			name:         "nil funcs are omitted",
			method:       http.MethodGet,
			expectedCode: http.StatusOK,
			expectedBody: `{"status":"ok"}`,
		},
		{
			name:         "HEAD has no body",
			method:       http.MethodHead,
			state:        streaming,
			session:      sessionOf(true, nil),
			expectedCode: http.StatusOK,
		},
		{
			name:         "OPTIONS",
			method:       http.MethodOptions,
			state:        streaming,
			expectedCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := gin.New()
			r.Handle(tt.method, "/healthz", Health(tt.state, tt.session))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, "/healthz", nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			} else {
				assert.Empty(t, w.Body.String())
			}
		})
	}
}
