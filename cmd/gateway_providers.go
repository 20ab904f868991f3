package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rustyclaw/rustyclaw/internal/config"
	"github.com/rustyclaw/rustyclaw/internal/providers"
	"github.com/rustyclaw/rustyclaw/internal/store"
)

func registerProviders(registry *providers.Registry, cfg *config.Config) {
	if cfg.Providers.Anthropic.APIKey != "" {
		p := providers.NewAnthropicProvider(cfg.Providers.Anthropic.APIKey)
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Anthropic.APIKey})
		slog.Info("registered provider", "name", "anthropic")
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		p := providers.NewOpenAIProvider("openai", cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, "gpt-4o")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.OpenAI.APIKey, APIBase: cfg.Providers.OpenAI.APIBase})
		slog.Info("registered provider", "name", "openai")
	}

	if cfg.Providers.OpenRouter.APIKey != "" {
		p := providers.NewOpenAIProvider("openrouter", cfg.Providers.OpenRouter.APIKey, "https://openrouter.ai/api/v1", "anthropic/claude-sonnet-4-5-20250929")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.OpenRouter.APIKey, APIBase: "https://openrouter.ai/api/v1"})
		slog.Info("registered provider", "name", "openrouter")
	}

	if cfg.Providers.Groq.APIKey != "" {
		p := providers.NewOpenAIProvider("groq", cfg.Providers.Groq.APIKey, "https://api.groq.com/openai/v1", "llama-3.3-70b-versatile")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Groq.APIKey, APIBase: "https://api.groq.com/openai/v1"})
		slog.Info("registered provider", "name", "groq")
	}

	if cfg.Providers.DeepSeek.APIKey != "" {
		p := providers.NewOpenAIProvider("deepseek", cfg.Providers.DeepSeek.APIKey, "https://api.deepseek.com/v1", "deepseek-chat")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.DeepSeek.APIKey, APIBase: "https://api.deepseek.com/v1"})
		slog.Info("registered provider", "name", "deepseek")
	}

	if cfg.Providers.Gemini.APIKey != "" {
		p := providers.NewOpenAIProvider("gemini", cfg.Providers.Gemini.APIKey, "https://generativelanguage.googleapis.com/v1beta/openai", "gemini-2.0-flash")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Gemini.APIKey, APIBase: "https://generativelanguage.googleapis.com/v1beta/openai"})
		slog.Info("registered provider", "name", "gemini")
	}

	if cfg.Providers.Mistral.APIKey != "" {
		p := providers.NewOpenAIProvider("mistral", cfg.Providers.Mistral.APIKey, "https://api.mistral.ai/v1", "mistral-large-latest")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Mistral.APIKey, APIBase: "https://api.mistral.ai/v1"})
		slog.Info("registered provider", "name", "mistral")
	}

	if cfg.Providers.XAI.APIKey != "" {
		p := providers.NewOpenAIProvider("xai", cfg.Providers.XAI.APIKey, "https://api.x.ai/v1", "grok-3-mini")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.XAI.APIKey, APIBase: "https://api.x.ai/v1"})
		slog.Info("registered provider", "name", "xai")
	}

	if cfg.Providers.MiniMax.APIKey != "" {
		p := providers.NewOpenAIProvider("minimax", cfg.Providers.MiniMax.APIKey, "https://api.minimax.io/v1", "MiniMax-M2.5").
			WithChatPath("/text/chatcompletion_v2")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.MiniMax.APIKey, APIBase: "https://api.minimax.io/v1"})
		slog.Info("registered provider", "name", "minimax")
	}

	if cfg.Providers.Cohere.APIKey != "" {
		p := providers.NewOpenAIProvider("cohere", cfg.Providers.Cohere.APIKey, "https://api.cohere.ai/compatibility/v1", "command-a")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Cohere.APIKey, APIBase: "https://api.cohere.ai/compatibility/v1"})
		slog.Info("registered provider", "name", "cohere")
	}

	if cfg.Providers.Perplexity.APIKey != "" {
		p := providers.NewOpenAIProvider("perplexity", cfg.Providers.Perplexity.APIKey, "https://api.perplexity.ai", "sonar-pro")
		registry.Register(p, providers.Credentials{APIKey: cfg.Providers.Perplexity.APIKey, APIBase: "https://api.perplexity.ai"})
		slog.Info("registered provider", "name", "perplexity")
	}

	registry.SetFallbackChain(cfg.Providers.FallbackChain)
}

// registerProvidersFromDB loads providers from Postgres and registers them.
// DB providers are registered after config providers, so they take precedence (overwrite).
func registerProvidersFromDB(registry *providers.Registry, provStore store.ProviderStore) {
	ctx := context.Background()
	dbProviders, err := provStore.ListProviders(ctx)
	if err != nil {
		slog.Warn("failed to load providers from DB", "error", err)
		return
	}
	for _, p := range dbProviders {
		if !p.Enabled || p.APIKey == "" {
			continue
		}
		creds := providers.Credentials{APIKey: p.APIKey, APIBase: p.APIBase}
		if p.ProviderType == "anthropic_native" {
			registry.Register(providers.NewAnthropicProvider(p.APIKey), creds)
		} else {
			prov := providers.NewOpenAIProvider(p.Name, p.APIKey, p.APIBase, "")
			// MiniMax native API uses a different chat path for vision support.
			if p.Name == "minimax" && strings.Contains(p.APIBase, "minimax.io") {
				prov.WithChatPath("/text/chatcompletion_v2")
			}
			registry.Register(prov, creds)
		}
		slog.Info("registered provider from DB", "name", p.Name)
	}
}
