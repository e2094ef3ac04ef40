// Package http provides the outbound HTTP client used by vendor API adapters.
package http

import (
	"net"
	"net/http"
	"time"
)

// defaultTimeout applies when the caller passes a non-positive timeout.
const defaultTimeout = 10 * time.Second

// NewHTTPClient はベンダーREST API（承認キー発行など）向けのHTTPクライアントを作成します。
// 呼び出しは再接続ごとに1回程度なので、アイドル接続は少数に抑えます。
// timeout が0以下の場合は10秒を使います。http.DefaultClient はタイムアウトがないため使いません。
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: t}
}
