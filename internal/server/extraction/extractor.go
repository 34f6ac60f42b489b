// Package extraction converts one upload record's content into an
// extraction result. Dispatch is by (processType, fileType); every failure
// inside a strategy is converted into a well-formed error result, so the
// batch worker never sees a panic or an error escape this boundary.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/notecompanion/pipeline/internal/server/ai"
	"github.com/notecompanion/pipeline/internal/server/models"
	"github.com/notecompanion/pipeline/internal/server/objectstore"
)

// diagramTokenCost is the flat cost billed for one diagram generation; the
// image endpoint does not report usage.
const diagramTokenCost = 2000

// Extractor dispatches upload records to extraction strategies.
type Extractor struct {
	store    objectstore.Gateway
	provider ai.Client

	// TempDir overrides the scratch directory for diagram staging files.
	// Empty means the system default.
	TempDir string
}

// New builds an extractor with its injected collaborators.
func New(store objectstore.Gateway, provider ai.Client) *Extractor {
	return &Extractor{store: store, provider: provider}
}

// Process runs the strategy selected by the record's processType and
// fileType. It always returns a well-formed result; strategy errors and
// panics become error results with a descriptive message.
func (e *Extractor) Process(ctx context.Context, rec *models.UploadRecord) (result models.ExtractionResult) {
	defer func() {
		if p := recover(); p != nil {
			result = models.ErrorResult(fmt.Sprintf("extraction panic: %v", p))
		}
	}()

	switch {
	case strings.HasPrefix(rec.FileType, "image/") && rec.ProcessType == models.ProcessStandardOCR:
		return e.extractImageText(ctx, rec)

	case strings.HasPrefix(rec.FileType, "image/") && rec.ProcessType == models.ProcessMagicDiagram:
		return e.generateDiagram(ctx, rec)

	case rec.FileType == "application/pdf":
		return models.ErrorResult("PDF processing pending implementation")

	case rec.FileType == "text/plain" || rec.FileType == "text/markdown":
		return e.passThroughText(ctx, rec)

	default:
		return models.ErrorResult(fmt.Sprintf("Unsupported file type: %s", rec.FileType))
	}
}

// extractImageText sends the record's public URL to the vision model.
func (e *Extractor) extractImageText(ctx context.Context, rec *models.UploadRecord) models.ExtractionResult {
	url, err := e.publicURL(rec)
	if err != nil {
		return models.ErrorResult(err.Error())
	}

	text, tokens, err := e.provider.ExtractText(ctx, url)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("text extraction failed: %v", err))
	}
	if tokens <= 0 {
		tokens = estimateTokens(text)
	}

	return models.ExtractionResult{
		Status:      models.StatusCompleted,
		TextContent: text,
		TokensUsed:  tokens,
	}
}

// passThroughText downloads the original bytes and decodes them as UTF-8.
// No AI call is made, so the attempt costs zero tokens.
func (e *Extractor) passThroughText(ctx context.Context, rec *models.UploadRecord) models.ExtractionResult {
	if rec.ObjectKey == "" {
		return models.ErrorResult("no object key for text content")
	}

	data, err := e.store.Download(ctx, rec.ObjectKey)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("download failed: %v", err))
	}
	if !utf8.Valid(data) {
		return models.ErrorResult("content is not valid UTF-8 text")
	}

	return models.ExtractionResult{
		Status:      models.StatusCompleted,
		TextContent: string(data),
		TokensUsed:  0,
	}
}

// publicURL prefers the record's own URL and falls back to deriving one
// from the object key. A record with neither cannot be processed.
func (e *Extractor) publicURL(rec *models.UploadRecord) (string, error) {
	if rec.PublicURL != "" {
		return rec.PublicURL, nil
	}
	if rec.ObjectKey != "" {
		return e.store.PublicURL(rec.ObjectKey), nil
	}
	return "", fmt.Errorf("cannot derive a fetchable URL for record %s", rec.ID)
}

// estimateTokens approximates provider usage as ceil(chars/4) when the
// provider omits a usage report.
func estimateTokens(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
