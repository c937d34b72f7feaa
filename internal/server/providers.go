package server

import (
	"context"
	"fmt"

	"devfolio/internal/aiwriter"
	"devfolio/internal/config"
	"devfolio/internal/middleware"
	"devfolio/internal/search"
	"devfolio/internal/storage"
)

// BuildDeps picks a provider for each external concern from cfg.
// Missing credentials select the unconfigured variant and log once.
func BuildDeps(ctx context.Context, cfg *config.Config) (Deps, error) {
	var deps Deps

	if cfg.CloudinaryURL != "" {
		images, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL)
		if err != nil {
			return deps, err
		}
		deps.Images = images
	} else {
		middleware.Logger.Warn("CLOUDINARY_URL not set, uploads disabled")
		deps.Images = storage.NewUnconfigured()
	}

	if cfg.MeiliHost != "" {
		deps.Indexer = search.NewMeiliIndexer(cfg.MeiliHost, cfg.MeiliAPIKey, cfg.MeiliIndex)
	} else {
		deps.Indexer = search.NewNoopIndexer()
	}

	if cfg.GeminiAPIKey != "" {
		model, err := aiwriter.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return deps, fmt.Errorf("ai writer setup failed: %w", err)
		}
		deps.Drafter = aiwriter.NewWriter(model, aiwriter.NewGitHubReadme(cfg.GithubToken))
	} else {
		middleware.Logger.Warn("GEMINI_API_KEY not set, AI descriptions disabled")
	}

	return deps, nil
}
