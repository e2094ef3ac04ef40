// Package dto holds KIS wire payloads.
package dto

// ApprovalRequest は /oauth2/Approval のリクエストボディです。
type ApprovalRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	SecretKey string `json:"secretkey"`
}

// ApprovalResponse は /oauth2/Approval のレスポンスボディです。
type ApprovalResponse struct {
	ApprovalKey string `json:"approval_key"`
	ErrorCode   string `json:"error_code,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}
