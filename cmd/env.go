package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/research-agent/internal/agent"
	"github.com/sells-group/research-agent/internal/checkpoint"
	"github.com/sells-group/research-agent/internal/event"
	"github.com/sells-group/research-agent/internal/memory"
	"github.com/sells-group/research-agent/internal/source"
	"github.com/sells-group/research-agent/pkg/arxiv"
	"github.com/sells-group/research-agent/pkg/llm"
	"github.com/sells-group/research-agent/pkg/serp"
	"github.com/sells-group/research-agent/pkg/tavily"
	"github.com/sells-group/research-agent/pkg/wikipedia"
)

func initMemory(ctx context.Context) (memory.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		st, err := memory.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres store")
		}
		return st, nil
	case "sqlite":
		st, err := memory.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func initCheckpoints(ctx context.Context) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Driver {
	case "postgres":
		st, err := checkpoint.NewPostgres(ctx, cfg.Checkpoint.DatabaseURL, cfg.Checkpoint.Pool)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres checkpoints")
		}
		return st, nil
	case "memory":
		return checkpoint.NewMemory(), nil
	default:
		return nil, eris.Errorf("unknown checkpoint driver %q", cfg.Checkpoint.Driver)
	}
}

func initBroker() (event.Broker, error) {
	switch cfg.Events.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Events.RedisURL)
		if err != nil {
			return nil, eris.Wrap(err, "parse redis url")
		}
		return event.NewRedisBroker(redis.NewClient(opts)), nil
	case "local":
		return event.NewLocalBroker(), nil
	default:
		return nil, eris.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func initRouter() *source.Router {
	arxivClient := arxiv.NewClient()
	wikiClient := wikipedia.NewClient()
	tavilyClient := tavily.NewClient(cfg.Tavily.Key, tavily.WithBaseURL(cfg.Tavily.BaseURL))
	serpClient := serp.NewClient(cfg.SerpAPI.Key, serp.WithBaseURL(cfg.SerpAPI.BaseURL))

	return source.NewRouter(
		source.NewArxivProvider(arxivClient),
		source.NewTavilyProvider(tavilyClient),
		source.NewWikipediaProvider(wikiClient),
		source.NewSerpProvider(serpClient),
	)
}

func initRunner(checkpoints checkpoint.Store, mem memory.Store) *agent.Runner {
	client := llm.NewClient(cfg.Anthropic.Key)
	return agent.NewRunner(client, initRouter(), checkpoints, mem, agent.Options{
		Model:         cfg.Anthropic.Model,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		MaxResults:    cfg.Agent.MaxResults,
		MaxIterations: cfg.Agent.MaxIterations,
	})
}
