// Package di provides dependency injection factories for creating application components.
package di

import (
	"stock_realtime/internal/platform/externalapi/kis"
	infrahttp "stock_realtime/internal/platform/http"
)

// NewApprovalClient creates a KIS approval-key client with its own HTTP client.
func NewApprovalClient(cfg kis.Config) *kis.ApprovalClient {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	return kis.NewApprovalClient(cfg, httpClient)
}
