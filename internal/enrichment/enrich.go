// File: internal/enrichment/enrich.go
// Description: Domain-level enrichment on top of the raw provider: prompt
// construction, response parsing, and the provider factory.

package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"domainlens/api/schemas"
	"domainlens/internal/config"
)

// NewClient builds the configured enrichment provider. A nil client with a
// nil error means enrichment is disabled; the pipeline runs heuristic-only.
func NewClient(cfg config.EnrichmentConfig, logger *zap.Logger) (schemas.EnrichmentClient, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown enrichment provider: %q", cfg.Provider)
	}
}

// Enricher asks the provider for supplementary entities and actions for a
// discovered domain.
type Enricher struct {
	client schemas.EnrichmentClient
	cfg    config.EnrichmentConfig
	logger *zap.Logger
}

// NewEnricher wraps an enrichment client. A nil client is allowed and turns
// every call into a no-op.
func NewEnricher(client schemas.EnrichmentClient, cfg config.EnrichmentConfig, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{client: client, cfg: cfg, logger: logger.Named("enrichment")}
}

// Enabled reports whether a provider is wired in.
func (e *Enricher) Enabled() bool { return e.client != nil }

const systemPrompt = `You are a software architect reviewing a front-end codebase. ` +
	`Given a discovered business domain, propose additional entities and user actions ` +
	`that belong to it. Respond with JSON only: {"entities": [...], "actions": [...]}.`

// EnrichDomain requests supplementary entities and actions for one domain.
// With no provider configured it returns empty slices and no error.
func (e *Enricher) EnrichDomain(ctx context.Context, domain schemas.DomainSummary, model string) ([]string, []string, error) {
	if e.client == nil {
		return nil, nil, nil
	}
	if model == "" {
		model = e.cfg.Model
	}

	completion, err := e.client.Complete(ctx,
		[]schemas.EnrichmentMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: domainPrompt(domain)},
		},
		schemas.EnrichmentOptions{
			Model:       model,
			Temperature: e.cfg.Temperature,
			MaxTokens:   e.cfg.MaxTokens,
			ForceJSON:   true,
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("enrichment for domain %q failed: %w", domain.Name, err)
	}

	entities, actions, err := ParseEntitiesAndActions(completion.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("unparseable enrichment response for domain %q: %w", domain.Name, err)
	}

	e.logger.Debug("Domain enriched",
		zap.String("domain", domain.Name),
		zap.Int("entities", len(entities)),
		zap.Int("actions", len(actions)),
	)
	return entities, actions, nil
}

func domainPrompt(domain schemas.DomainSummary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Domain: %s\n", domain.Name)
	if domain.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", domain.Description)
	}
	if len(domain.Entities) > 0 {
		fmt.Fprintf(&sb, "Known entities: %s\n", strings.Join(domain.Entities, ", "))
	}
	if len(domain.Actions) > 0 {
		fmt.Fprintf(&sb, "Known actions: %s\n", strings.Join(domain.Actions, ", "))
	}
	if len(domain.SourceFiles) > 0 {
		fmt.Fprintf(&sb, "Source files:\n")
		for _, f := range domain.SourceFiles {
			fmt.Fprintf(&sb, "  - %s\n", f)
		}
	}
	return sb.String()
}

// enrichmentResult is the JSON shape the provider is asked for.
type enrichmentResult struct {
	Entities []string `json:"entities"`
	Actions  []string `json:"actions"`
}

var jsonBlockRegex = regexp.MustCompile(fmt.Sprintf("(?s)%s(?:json)?\\s*(.*?)\\s*%s", "```", "```"))

// ParseEntitiesAndActions decodes an enrichment response, accepting either
// bare JSON or a fenced markdown block around it.
func ParseEntitiesAndActions(content string) ([]string, []string, error) {
	raw := strings.TrimSpace(content)
	if match := jsonBlockRegex.FindStringSubmatch(raw); len(match) == 2 {
		raw = strings.TrimSpace(match[1])
	}

	var result enrichmentResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, nil, fmt.Errorf("failed to decode enrichment JSON: %w", err)
	}
	return result.Entities, result.Actions, nil
}
