package model

// HealthResponse GET /health 的返回体
type HealthResponse struct {
	Status    string `json:"status"`
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
