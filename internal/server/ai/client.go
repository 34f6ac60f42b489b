// Package ai talks to the external AI provider for vision text extraction
// and sketch digitizing. The provider is treated as an opaque function from
// input to text or image plus a token cost; clients are constructor-injected
// so tests can substitute fakes.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// Client is the provider surface the extractor depends on.
type Client interface {
	// ExtractText runs vision OCR against a publicly fetchable image URL and
	// returns markdown text plus the provider-reported token usage (0 when
	// the provider omits usage).
	ExtractText(ctx context.Context, imageURL string) (string, int, error)

	// GenerateDiagram submits a sketch image and returns the generated
	// image payload as base64 PNG.
	GenerateDiagram(ctx context.Context, image []byte) (string, error)
}

const (
	visionModel = "gpt-4o"
	imageModel  = "gpt-image-1"

	ocrPrompt = "Extract all text from this image. Return clean markdown, " +
		"preserving headings, lists and tables. Return only the extracted content."
	diagramPrompt = "Digitize this hand-drawn sketch into a clean, legible diagram. " +
		"Keep the layout and labels, straighten lines and normalize shapes."
)

// HTTPClient implements Client over the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient builds a provider client with a bounded request timeout.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ExtractText sends the image URL to the vision model.
func (c *HTTPClient) ExtractText(ctx context.Context, imageURL string) (string, int, error) {
	reqBody := chatRequest{
		Model: visionModel,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: ocrPrompt},
				{Type: "image_url", ImageURL: &imageRef{URL: imageURL}},
			},
		}},
	}

	body, err := c.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return "", 0, err
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", 0, fmt.Errorf("provider returned no choices")
	}

	return result.Choices[0].Message.Content, result.Usage.TotalTokens, nil
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// GenerateDiagram submits the sketch via the image-editing endpoint.
func (c *HTTPClient) GenerateDiagram(ctx context.Context, image []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", "sketch.png")
	if err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := writer.WriteField("model", imageModel); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := writer.WriteField("prompt", diagramPrompt); err != nil {
		return "", fmt.Errorf("failed to build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	var result imageResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Data) == 0 || result.Data[0].B64JSON == "" {
		return "", fmt.Errorf("provider returned no image payload")
	}

	return result.Data[0].B64JSON, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyProviderError(resp.StatusCode, body)
	}
	return body, nil
}
