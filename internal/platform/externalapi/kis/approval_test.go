package kis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock_realtime/internal/platform/externalapi/kis/dto"
)

func TestNewApprovalClient(t *testing.T) {
	t.Parallel()

	cfg := Config{AppKey: "key", AppSecret: "secret", BaseURL: "https://api.test.com", Timeout: 10 * time.Second}
	c := NewApprovalClient(cfg, &http.Client{})

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.cfg.AppKey != cfg.AppKey {
		t.Errorf("expected app key %q, got %q", cfg.AppKey, c.cfg.AppKey)
	}
}

func TestApprovalClient_GetApprovalKey_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/oauth2/Approval" {
			t.Errorf("expected path /oauth2/Approval, got %s", r.URL.Path)
		}
		var req dto.ApprovalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GrantType != "client_credentials" || req.AppKey != "key" || req.SecretKey != "secret" {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"approval_key":"a1b2c3"}`))
	}))
	defer server.Close()

	c := NewApprovalClient(Config{AppKey: "key", AppSecret: "secret", BaseURL: server.URL + "/"}, server.Client())
	key, err := c.GetApprovalKey(context.Background())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "a1b2c3" {
		t.Errorf("expected key a1b2c3, got %q", key)
	}
}

func TestApprovalClient_GetApprovalKey_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		cfg     Config
		wantMsg string
	}{
		{name: "http error", status: http.StatusForbidden, body: `{}`, wantMsg: "http 403"},
		{name: "empty key", status: http.StatusOK, body: `{"error_code":"EGW00103","error_description":"invalid appkey"}`, wantMsg: "EGW00103"},
		{name: "invalid json", status: http.StatusOK, body: `not json`, wantMsg: "invalid character"},
		{name: "missing credentials", status: http.StatusOK, body: `{}`, cfg: Config{AppSecret: "secret"}, wantMsg: "KIS_APP_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			cfg := tt.cfg
			if cfg == (Config{}) {
				cfg = Config{AppKey: "key", AppSecret: "secret"}
			}
			cfg.BaseURL = server.URL

			_, err := NewApprovalClient(cfg, server.Client()).GetApprovalKey(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}
