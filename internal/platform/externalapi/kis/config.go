// Package kis provides a client for the Korea Investment & Securities open API.
package kis

import (
	"time"

	"stock_realtime/internal/platform/env"
)

// Config holds configuration for the KIS API client.
type Config struct {
	AppKey    string        // issued application key
	AppSecret string        // issued application secret
	BaseURL   string        // REST base URL (e.g., "https://openapi.koreainvestment.com:9443")
	WSURL     string        // realtime websocket URL (e.g., "ws://ops.koreainvestment.com:21000")
	TrID      string        // realtime transaction id for overseas executions
	Timeout   time.Duration // HTTP request timeout
}

// LoadConfig loads KIS configuration from environment variables.
func LoadConfig() Config {
	return Config{
		AppKey:    env.String("KIS_APP_KEY", ""),
		AppSecret: env.String("KIS_APP_SECRET", ""),
		BaseURL:   env.String("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
		WSURL:     env.String("KIS_WS_URL", "ws://ops.koreainvestment.com:21000"),
		TrID:      env.String("KIS_TR_ID", "HDFSCNT0"),
		Timeout:   env.Duration("KIS_HTTP_TIMEOUT", 10*time.Second),
	}
}
