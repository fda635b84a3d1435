package actionmesh

import (
	"context"
	"fmt"
	"io"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/hupe1980/actionmesh/channel/sms"
	"github.com/hupe1980/actionmesh/commitment"
	"github.com/hupe1980/actionmesh/config"
	"github.com/hupe1980/actionmesh/core"
	"github.com/hupe1980/actionmesh/enrichment"
	"github.com/hupe1980/actionmesh/logging"
	"github.com/hupe1980/actionmesh/model"
	anthropicmodel "github.com/hupe1980/actionmesh/model/anthropic"
	"github.com/hupe1980/actionmesh/model/gemini"
	"github.com/hupe1980/actionmesh/model/openai"
	"github.com/hupe1980/actionmesh/orchestrator"
	"github.com/hupe1980/actionmesh/store"
	"github.com/redis/go-redis/v9"
)

// FromConfig builds an ActionMesh from a loaded configuration: the store,
// models, error buffer and logger are created from cfg, then optFns may
// override any option.
func FromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*ActionMesh, error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logging.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Component: "actionmesh",
	})

	loc, err := cfg.Commitment.Location()
	if err != nil {
		return nil, err
	}
	llm, err := NewModel(ctx, cfg.Model, cfg.Model.Model)
	if err != nil {
		return nil, err
	}
	classifier, err := NewModel(ctx, cfg.Model, cfg.Model.ClassifierModel)
	if err != nil {
		return nil, err
	}

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	var client *redis.Client
	var buffer enrichment.ErrorBuffer = enrichment.NewRingBuffer(cfg.ErrorBuffer.Size, cfg.ErrorBuffer.TTL)
	if cfg.ErrorBuffer.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{Addr: cfg.ErrorBuffer.RedisAddr})
		buffer = enrichment.NewRedisBuffer(client, cfg.ErrorBuffer.Size, cfg.ErrorBuffer.TTL)
	}

	fns := append([]func(o *Options){func(o *Options) {
		o.Store = st
		o.Model = llm
		if cfg.Model.Provider != "mock" {
			o.ClassifierModel = classifier
		}
		o.ErrorBuffer = buffer
		o.PruneInterval = cfg.ErrorBuffer.TTL / 2
		o.Logger = logger
		o.Enrichment = func(e *enrichment.Options) {
			e.ActivityLimit = cfg.Enrichment.ActivityLimit
			e.UpcomingLimit = cfg.Enrichment.UpcomingLimit
			e.MessageLimit = cfg.Enrichment.MessageLimit
			e.CountryCode = cfg.Enrichment.CountryCode
		}
		o.Orchestrator = func(oo *orchestrator.Options) {
			oo.CompanyName = cfg.Orchestrator.CompanyName
			oo.ForbiddenCategories = cfg.Orchestrator.ForbiddenCategories
			oo.Integrations = cfg.Orchestrator.Integrations
			oo.ToolTimeout = cfg.Orchestrator.ToolTimeout
		}
		o.Commitment = func(c *commitment.Options) {
			c.CutoffHour = cfg.Commitment.CutoffHour
			c.DueHour = cfg.Commitment.DueHour
			c.Location = loc
		}
		o.SMS = func(s *sms.Options) {
			s.MaxLength = cfg.SMS.MaxLength
			s.FallbackReply = cfg.SMS.FallbackReply
		}
	}}, optFns...)

	am, err := New(fns...)
	if err != nil || am.opts.Store != st {
		closeStore(st)
	}
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, err
	}
	if client != nil {
		am.closers = append(am.closers, client)
	}
	return am, nil
}

func closeStore(st core.Store) {
	if c, ok := st.(io.Closer); ok {
		_ = c.Close()
	}
}

// OpenStore creates the store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return store.NewInMemoryStore(), nil
	case "sqlite", "postgres":
		return store.Open(ctx, cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// NewModel creates the provider model named by cfg.Provider for modelID,
// guarded by the configured timeout and rate limit.
func NewModel(ctx context.Context, cfg config.ModelConfig, modelID string) (model.Model, error) {
	var m model.Model
	switch cfg.Provider {
	case "openai":
		m = openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if modelID != "" {
				o.Model = modelID
			}
		})
	case "anthropic":
		m = anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = cfg.Temperature
			if modelID != "" {
				o.Model = anthropic.Model(modelID)
			}
		})
	case "gemini":
		g, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			o.Temperature = float32(cfg.Temperature)
			if modelID != "" {
				o.Model = modelID
			}
		})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		m = g
	case "mock":
		m = model.NewMockModel(modelID)
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
	return model.NewGuarded(m, func(o *model.GuardOptions) {
		o.Timeout = cfg.Timeout
		o.RatePerSecond = cfg.RateLimit
		o.Burst = cfg.Burst
	}), nil
}
