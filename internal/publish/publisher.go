package publish

import (
	"context"

	"forgeline/internal/models"
)

// Publisher writes one generated file to a source-control host. Publishing is
// a best-effort enhancement: callers absorb failures instead of escalating
// them.
type Publisher interface {
	PutFile(ctx context.Context, target models.PublishTarget, path, content, message string) (*models.PublishRecord, error)
}
