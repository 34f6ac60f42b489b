package extraction

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notecompanion/pipeline/internal/server/models"
)

// generateDiagram downloads the sketch, stages it in a temporary file,
// submits it to the image-editing model and re-uploads the generated image
// under a fresh collision-resistant key. The staging file is removed on
// every exit path.
func (e *Extractor) generateDiagram(ctx context.Context, rec *models.UploadRecord) models.ExtractionResult {
	if rec.ObjectKey == "" {
		return models.ErrorResult("no object key for diagram source")
	}

	data, err := e.store.Download(ctx, rec.ObjectKey)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("download failed: %v", err))
	}

	tmp, err := os.CreateTemp(e.TempDir, "sketch-*.png")
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("staging failed: %v", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		return models.ErrorResult(fmt.Sprintf("staging failed: %v", firstErr(werr, cerr)))
	}

	staged, err := os.ReadFile(tmpPath)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("staging failed: %v", err))
	}

	payload, err := e.provider.GenerateDiagram(ctx, staged)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("diagram generation failed: %v", err))
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return models.ErrorResult(fmt.Sprintf("invalid image payload: %v", err))
	}

	key := generatedKey(rec.UserID, rec.ObjectKey)
	if err := e.store.Upload(ctx, key, image, "image/png"); err != nil {
		return models.ErrorResult(fmt.Sprintf("upload of generated image failed: %v", err))
	}

	return models.ExtractionResult{
		Status:            models.StatusCompleted,
		GeneratedImageURL: e.store.PublicURL(key),
		TokensUsed:        diagramTokenCost,
	}
}

// generatedKey builds "generated/{userId}/{unixMillis}-{hex}-{basename}.png".
// The basename is the source object's file name without its extension.
func generatedKey(userID, sourceKey string) string {
	base := strings.TrimSuffix(filepath.Base(sourceKey), filepath.Ext(sourceKey))
	if base == "" || base == "." || base == "/" {
		base = "diagram"
	}
	random := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("generated/%s/%d-%s-%s.png", userID, time.Now().UnixMilli(), random, base)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
