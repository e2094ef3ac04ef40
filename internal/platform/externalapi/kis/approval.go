package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"stock_realtime/internal/feature/feed/usecase"
	"stock_realtime/internal/platform/externalapi/kis/dto"
)

// ApprovalClient は KIS のリアルタイム接続用承認キーを発行する ApprovalKeyProvider 実装です。
type ApprovalClient struct {
	cfg    Config
	client *http.Client
}

// ApprovalClientがApprovalKeyProviderを実装していることをコンパイル時に検証します。
var _ usecase.ApprovalKeyProvider = (*ApprovalClient)(nil)

// NewApprovalClient は指定された設定とHTTPクライアントでApprovalClientの新しいインスタンスを生成します。
func NewApprovalClient(cfg Config, client *http.Client) *ApprovalClient {
	return &ApprovalClient{cfg: cfg, client: client}
}

// GetApprovalKey requests a fresh websocket approval key. It is called once per connection.
func (a *ApprovalClient) GetApprovalKey(ctx context.Context) (string, error) {
	if a.cfg.AppKey == "" || a.cfg.AppSecret == "" {
		return "", errors.New("kis: KIS_APP_KEY and KIS_APP_SECRET are required")
	}

	body, err := json.Marshal(dto.ApprovalRequest{
		GrantType: "client_credentials",
		AppKey:    a.cfg.AppKey,
		SecretKey: a.cfg.AppSecret,
	})
	if err != nil {
		return "", err
	}

	u := strings.TrimRight(a.cfg.BaseURL, "/") + "/oauth2/Approval"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	// リクエストを実行
	res, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return "", fmt.Errorf("kis approval http %d", res.StatusCode)
	}

	var out dto.ApprovalResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.ApprovalKey == "" {
		return "", fmt.Errorf("kis approval: empty key (%s %s)", out.ErrorCode, out.ErrorDesc)
	}
	return out.ApprovalKey, nil
}
