package models

// Wire types shared by the HTTP handlers and the API client.

type CreateItemRequest struct {
	Type           FeedbackType   `json:"type"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Tags           []string       `json:"tags,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IdempotencyKey string         `json:"idempotencyKey,omitempty"`
}

type CreateItemResponse struct {
	Success bool          `json:"success"`
	Request *FeedbackItem `json:"request,omitempty"`
}

type DashboardResponse struct {
	Project  ProjectSummary `json:"project"`
	Requests []FeedbackItem `json:"requests"`
}

type VoteRequest struct {
	RequestID string `json:"requestId"`
}

type VoteResponse struct {
	Success bool  `json:"success"`
	Votes   int64 `json:"votes"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateProjectRequest struct {
	Name       string `json:"name"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
}

type CreateProjectResponse struct {
	Project *Project `json:"project"`
	APIKey  string   `json:"apiKey"`
}

type IssueKeyResponse struct {
	APIKey string `json:"apiKey"`
}
