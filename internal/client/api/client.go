// Package api is the client's view of the processing backend's HTTP API.
package api

import "context"

// UploadRequest carries one file to the intake endpoint.
type UploadRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Base64      string `json:"base64"`
	ProcessType string `json:"processType,omitempty"`
}

// UploadResponse is the intake endpoint's reply.
type UploadResponse struct {
	FileID string `json:"fileId"`
	Status string `json:"status"`
}

// FileStatus mirrors the status endpoint's payload.
type FileStatus struct {
	Status            string `json:"status"`
	TextContent       string `json:"textContent,omitempty"`
	GeneratedImageURL string `json:"generatedImageUrl,omitempty"`
	TokensUsed        int    `json:"tokensUsed,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Terminal reports whether the record reached a state the worker will not
// change on its own.
func (s *FileStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "error"
}

// Client talks to the backend. A 404 from the status endpoint surfaces as
// common.ErrorNotFound so pollers can treat it as "not yet visible".
type Client interface {
	UploadFile(ctx context.Context, req UploadRequest) (*UploadResponse, error)
	GetFileStatus(ctx context.Context, fileID string) (*FileStatus, error)
}
