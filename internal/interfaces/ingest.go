package interfaces

import (
	"context"

	"sentiment-sales-risk/internal/types"
)

// Ingestor fetches raw comments for a search query from a content platform.
// Failures are returned as *types.IngestionError.
type Ingestor interface {
	FetchComments(ctx context.Context, platform, query string) ([]types.Comment, error)
}
