package ai

import (
	"encoding/json"
	"fmt"
)

// ProviderError is a classified error from the AI provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// Known provider error body shapes, tried in order. The provider's APIs are
// not consistent: chat endpoints nest the message under "error", older
// endpoints return it flat, and some gateways use "detail".
type nestedErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type flatErrorBody struct {
	Message string `json:"message"`
}

type detailErrorBody struct {
	Detail string `json:"detail"`
}

// classifyProviderError decodes a non-200 response body against the closed
// set of known error shapes and falls back to a generic message.
func classifyProviderError(status int, body []byte) error {
	var nested nestedErrorBody
	if err := json.Unmarshal(body, &nested); err == nil && nested.Error.Message != "" {
		return &ProviderError{StatusCode: status, Message: nested.Error.Message}
	}

	var flat flatErrorBody
	if err := json.Unmarshal(body, &flat); err == nil && flat.Message != "" {
		return &ProviderError{StatusCode: status, Message: flat.Message}
	}

	var detail detailErrorBody
	if err := json.Unmarshal(body, &detail); err == nil && detail.Detail != "" {
		return &ProviderError{StatusCode: status, Message: detail.Detail}
	}

	return &ProviderError{StatusCode: status, Message: fmt.Sprintf("unrecognized error response (%d bytes)", len(body))}
}
