package service

import (
	"context"
	"log/slog"

	"devfolio/internal/middleware"
	"devfolio/internal/models"
	"devfolio/internal/search"
	"devfolio/internal/storage"
)

// discardImage removes a replaced image from storage. Failures are logged only.
func discardImage(ctx context.Context, images storage.ImageStorage, oldURL, newURL string) {
	if images == nil || oldURL == "" || oldURL == newURL || !images.Owns(oldURL) {
		return
	}
	if err := images.Delete(ctx, oldURL); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to delete replaced image",
			slog.String("url", oldURL),
			slog.String("error", err.Error()),
		)
	}
}

// syncIndex feeds the search index. Failures are logged only.
func syncIndex(ctx context.Context, indexer search.ProjectIndexer, project *models.Project) {
	if indexer == nil {
		return
	}
	var err error
	if project.Published {
		err = indexer.Index(ctx, project)
	} else {
		err = indexer.Remove(ctx, project.ID)
	}
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to sync search index",
			slog.Uint64("project_id", uint64(project.ID)),
			slog.Bool("published", project.Published),
			slog.String("error", err.Error()),
		)
	}
}
