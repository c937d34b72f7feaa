// Package search feeds published projects to the Meilisearch index.
package search

import (
	"context"
	"strconv"
	"strings"

	"devfolio/internal/models"
	"devfolio/internal/observability"
	"devfolio/internal/validation"

	"github.com/meilisearch/meilisearch-go"
)

// ProjectIndexer keeps the external search index in step with published projects.
type ProjectIndexer interface {
	Index(ctx context.Context, project *models.Project) error
	Remove(ctx context.Context, projectID uint) error
}

// Document is the indexed shape of a published project.
type Document struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	TechStack   []string `json:"techStack"`
	Username    string   `json:"username"`
	OwnerName   string   `json:"ownerName"`
	ImageURL    string   `json:"imageUrl"`
	Views       int64    `json:"views"`
	CreatedAt   int64    `json:"createdAt"`
}

// NewDocument converts a project, with its owner loaded, into an index document.
func NewDocument(p *models.Project) Document {
	doc := Document{
		ID:          strconv.FormatUint(uint64(p.ID), 10),
		Title:       p.Title,
		Description: cleanText(p.Description),
		Slug:        p.Slug,
		TechStack:   append([]string{}, p.TechStack...),
		ImageURL:    p.ImageURL,
		Views:       p.Views,
		CreatedAt:   p.CreatedAt.Unix(),
	}
	if p.User != nil {
		doc.Username = p.User.UsernameOrEmpty()
		doc.OwnerName = p.User.Name
	}
	return doc
}

func cleanText(s string) string {
	s = validation.StripHTML(s)
	return strings.Join(strings.Fields(s), " ")
}

type meiliIndexer struct {
	index meilisearch.IndexManager
}

// NewMeiliIndexer returns an indexer writing to indexName on host.
func NewMeiliIndexer(host, apiKey, indexName string) ProjectIndexer {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))
	return &meiliIndexer{index: client.Index(indexName)}
}

func (m *meiliIndexer) Index(ctx context.Context, project *models.Project) (err error) {
	span, _ := observability.StartClientSpan(ctx, "meilisearch", "add_documents")
	defer func() { span.Finish(err) }()

	if _, err = m.index.AddDocuments([]Document{NewDocument(project)}, strPtr("id")); err != nil {
		observability.ExternalCallFailures.WithLabelValues("meilisearch").Inc()
	}
	return err
}

func (m *meiliIndexer) Remove(ctx context.Context, projectID uint) (err error) {
	span, _ := observability.StartClientSpan(ctx, "meilisearch", "delete_document")
	defer func() { span.Finish(err) }()

	if _, err = m.index.DeleteDocument(strconv.FormatUint(uint64(projectID), 10)); err != nil {
		observability.ExternalCallFailures.WithLabelValues("meilisearch").Inc()
	}
	return err
}

func strPtr(s string) *string { return &s }

type noopIndexer struct{}

// NewNoopIndexer returns an indexer that drops every update.
func NewNoopIndexer() ProjectIndexer { return noopIndexer{} }

func (noopIndexer) Index(context.Context, *models.Project) error { return nil }

func (noopIndexer) Remove(context.Context, uint) error { return nil }
