package aiwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"devfolio/internal/models"
)

// Request describes the project a draft is written for.
type Request struct {
	Title     string   `json:"title"`
	TechStack []string `json:"techStack"`
	RepoURL   string   `json:"repoUrl"`
	LiveURL   string   `json:"liveUrl"`
}

// Draft is the structured reply returned to the client.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TechStack   []string `json:"techStack"`
	LiveURL     string   `json:"liveUrl"`
}

// ReadmeSource loads repository README text for a repository URL.
// It returns "" when the URL is not a supported repository.
type ReadmeSource interface {
	Readme(ctx context.Context, repoURL string) (string, error)
}

// Writer composes prompts and parses model replies into drafts.
type Writer struct {
	model  Model
	readme ReadmeSource
}

// NewWriter creates a Writer. readme may be nil.
func NewWriter(model Model, readme ReadmeSource) *Writer {
	return &Writer{model: model, readme: readme}
}

// Draft asks the model for a description of req.
func (w *Writer) Draft(ctx context.Context, req Request) (*Draft, error) {
	var readme string
	if req.RepoURL != "" && w.readme != nil {
		// README context is optional.
		if text, err := w.readme.Readme(ctx, req.RepoURL); err == nil {
			readme = text
		}
	}

	reply, err := w.model.Generate(ctx, BuildPrompt(req, readme))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reply) == "" {
		return nil, models.NewUpstreamError("Empty response generated", nil)
	}

	draft := ParseDraft(reply, req.Title)
	return &draft, nil
}

// BuildPrompt renders the drafting prompt for req and optional README text.
func BuildPrompt(req Request, readme string) string {
	var b strings.Builder
	b.WriteString("Generate a professional, concise project description (2-3 sentences) for a portfolio website based on the following information:\n\n")
	fmt.Fprintf(&b, "Project Title: %s\n", req.Title)
	if len(req.TechStack) > 0 {
		fmt.Fprintf(&b, "Technologies: %s\n", strings.Join(req.TechStack, ", "))
	}
	if req.RepoURL != "" {
		fmt.Fprintf(&b, "Repository URL: %s\n", req.RepoURL)
	}
	if req.LiveURL != "" {
		fmt.Fprintf(&b, "Live URL: %s\n", req.LiveURL)
	}
	if readme != "" {
		fmt.Fprintf(&b, "\nRepository README:\n%s\n", readme)
	}
	b.WriteString(`
Based on the information provided, generate a JSON object with the following structure:
{
  "title": "A better, more descriptive project title (not just the repo name)",
  "description": "A professional, concise project description (2-3 sentences) that highlights the project's purpose, key features, and technologies used. Write in English.",
  "techStack": ["technology1", "technology2", "technology3"],
  "liveUrl": "the live URL if mentioned in the README or project info, otherwise empty string"
}

Important:
- Extract technologies from the README, tech stack field, or repository topics
- Only include the liveUrl if it's explicitly mentioned
- The title should be descriptive and professional, not just the repository name
- Return ONLY valid JSON, no additional text or markdown formatting`)
	return b.String()
}

// ParseDraft decodes a model reply, tolerating markdown code fences. A reply
// that is not JSON becomes the description of a draft titled fallbackTitle.
func ParseDraft(reply, fallbackTitle string) Draft {
	cleaned := stripFences(strings.TrimSpace(reply))

	var parsed struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		TechStack   json.RawMessage `json:"techStack"`
		LiveURL     string          `json:"liveUrl"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Draft{
			Title:       fallbackTitle,
			Description: strings.TrimSpace(reply),
			TechStack:   []string{},
		}
	}

	d := Draft{
		Title:       parsed.Title,
		Description: parsed.Description,
		TechStack:   []string{},
		LiveURL:     parsed.LiveURL,
	}
	if d.Title == "" {
		d.Title = fallbackTitle
	}
	// Anything other than a list of strings is dropped.
	var stack []string
	if json.Unmarshal(parsed.TechStack, &stack) == nil && stack != nil {
		d.TechStack = stack
	}
	return d
}

func stripFences(s string) string {
	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(s, fence) {
			s = strings.TrimSpace(strings.TrimPrefix(s, fence))
			s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
			break
		}
	}
	return s
}
