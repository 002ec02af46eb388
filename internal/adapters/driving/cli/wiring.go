package cli

import (
	"context"
	"fmt"

	"github.com/custodia-labs/razorsearch/internal/adapters/driven/config"
	openaiembed "github.com/custodia-labs/razorsearch/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/razorsearch/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/razorsearch/internal/adapters/driven/vector/postgres"
	githubconn "github.com/custodia-labs/razorsearch/internal/connectors/github"
	slackconn "github.com/custodia-labs/razorsearch/internal/connectors/slack"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
	"github.com/custodia-labs/razorsearch/internal/core/services"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// app holds the wired service graph for one command invocation.
type app struct {
	cfg      *config.Config
	store    driven.VectorStore
	embedder driven.EmbeddingService
	llm      driven.LLMService
}

// loadApp reads configuration and connects the required backends. The
// LLM is optional: commands degrade without it rather than fail.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := postgres.NewStore(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, err
	}

	embedder, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var llm driven.LLMService
	if cfg.HasLLM() {
		llm, err = openaillm.NewLLMService(openaillm.Config{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.LLMModel,
		})
		if err != nil {
			logger.Warn("LLM unavailable, continuing without it: %v", err)
			llm = nil
		}
	}

	return &app{cfg: cfg, store: store, embedder: embedder, llm: llm}, nil
}

func (a *app) close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	_ = a.embedder.Close()
	_ = a.store.Close()
}

// memory builds the query memory store, or nil when disabled.
func (a *app) memory() *services.Memory {
	if !a.cfg.Memory.Enabled {
		return nil
	}
	return services.NewMemory(a.store, a.embedder, a.cfg.TenantID)
}

// searcher builds the search service.
func (a *app) searcher() *services.Searcher {
	// A nil *Memory must stay a nil interface inside the searcher.
	var mem driving.MemoryService
	if m := a.memory(); m != nil {
		mem = m
	}
	return services.NewSearcher(a.store, a.embedder, a.searchLLM(), mem, a.cfg.TenantID, services.SearchLimits{
		MaxResults: a.cfg.Search.MaxResults,
		MinScore:   a.cfg.Search.MinScore,
	})
}

// searchLLM returns the LLM when enrichment is enabled.
func (a *app) searchLLM() driven.LLMService {
	if !a.cfg.Search.EnableEnrichment {
		return nil
	}
	return a.llm
}

// connectors builds every configured source connector.
func (a *app) connectors() ([]driven.SourceConnector, error) {
	var conns []driven.SourceConnector

	if a.cfg.HasGitHub() {
		gh, err := githubconn.NewConnector(githubconn.Config{
			Token:           a.cfg.GitHub.Token,
			Org:             a.cfg.GitHub.Org,
			RepoLimit:       a.cfg.GitHub.RepoLimit,
			PRLimit:         a.cfg.GitHub.PRLimit,
			CommitBatchSize: a.cfg.GitHub.CommitBatchSize,
		})
		if err != nil {
			return nil, err
		}
		conns = append(conns, gh)
	}

	if a.cfg.HasSlack() {
		sl, err := slackconn.NewConnector(slackconn.Config{
			BotToken:              a.cfg.Slack.BotToken,
			Channels:              a.cfg.Slack.Channels,
			DaysBack:              a.cfg.Slack.DaysBack,
			MaxMessagesPerChannel: a.cfg.Slack.MaxMessagesPerChannel,
		})
		if err != nil {
			return nil, err
		}
		conns = append(conns, sl)
	}

	if len(conns) == 0 {
		return nil, fmt.Errorf("no sources configured: set github or slack credentials")
	}
	return conns, nil
}

// ingestor builds the ingestion orchestrator.
func (a *app) ingestor() (*services.Ingestor, error) {
	conns, err := a.connectors()
	if err != nil {
		return nil, err
	}
	return services.NewIngestor(conns, a.store, a.embedder, a.llm, a.cfg.TenantID), nil
}
