package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cobaltgrid/axon/pkg/agent"
	"github.com/cobaltgrid/axon/pkg/agentctx"
	"github.com/cobaltgrid/axon/pkg/capability"
	"github.com/cobaltgrid/axon/pkg/config"
	"github.com/cobaltgrid/axon/pkg/logger"
	"github.com/cobaltgrid/axon/pkg/providers"
	"github.com/cobaltgrid/axon/pkg/providers/anthropic_sdk"
	"github.com/cobaltgrid/axon/pkg/providers/openai_compat"
	"github.com/cobaltgrid/axon/pkg/providers/openai_sdk"
	"github.com/cobaltgrid/axon/pkg/snapshot"
)

func loadConfigFrom(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(config.ExpandHome(path))
	if err != nil {
		return nil, err
	}

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetLevel(logger.DEBUG)
	}
	if cfg.LogFile != "" {
		if err := logger.EnableFileLogging(config.ExpandHome(cfg.LogFile)); err != nil {
			logger.WarnCF("main", "file logging disabled", map[string]any{"error": err.Error()})
		}
	}
	return cfg, nil
}

// routingTransport picks a concrete transport per endpoint so the primary
// and its backups can live on different provider APIs.
type routingTransport struct {
	compat    *openai_compat.Transport
	openai    *openai_sdk.Transport
	anthropic *anthropic_sdk.Transport
}

func newRoutingTransport(proxy string) *routingTransport {
	return &routingTransport{
		compat:    openai_compat.NewTransport(proxy),
		openai:    openai_sdk.NewTransport(),
		anthropic: anthropic_sdk.NewTransport(),
	}
}

func (t *routingTransport) Name() string {
	return "auto"
}

func (t *routingTransport) pick(ep providers.Endpoint) providers.Transport {
	switch {
	case strings.Contains(ep.BaseURL, "anthropic.com") || strings.HasPrefix(ep.Model, "claude"):
		return t.anthropic
	case strings.Contains(ep.BaseURL, "api.openai.com"):
		return t.openai
	default:
		return t.compat
	}
}

func (t *routingTransport) Complete(ctx context.Context, ep providers.Endpoint, req providers.CompletionRequest) (*providers.CompletionResult, error) {
	return t.pick(ep).Complete(ctx, ep, req)
}

func toEndpoint(ec config.EndpointConfig) providers.Endpoint {
	return providers.Endpoint{
		Name:    ec.Name,
		BaseURL: ec.BaseURL,
		Model:   ec.Model,
		APIKey:  ec.APIKey,
	}
}

func buildGateway(cfg *config.Config) *providers.Gateway {
	backups := make([]providers.Endpoint, 0, len(cfg.LLM.Backups))
	for _, b := range cfg.LLM.Backups {
		backups = append(backups, toEndpoint(b))
	}

	opts := []providers.GatewayOption{providers.WithMaxRetries(cfg.LLM.MaxRetries)}
	if cfg.LLM.FailoverAll {
		opts = append(opts, providers.WithFailoverAll())
	}

	return providers.NewGateway(newRoutingTransport(cfg.LLM.Proxy), toEndpoint(cfg.LLM.Primary), backups, opts...)
}

func openSnapshotStore(cfg *config.Config) (snapshot.Store, error) {
	path := config.ExpandHome(cfg.Storage.Path)
	if cfg.Storage.Backend == "file" {
		return snapshot.NewFileStore(path)
	}
	return snapshot.NewSQLiteStore(path)
}

func settingsFrom(cfg *config.Config) agentctx.Settings {
	return agentctx.Settings{
		MaxTokens:        cfg.Agent.MaxTokens,
		Temperature:      cfg.Agent.Temperature,
		TopP:             cfg.Agent.TopP,
		FrequencyPenalty: cfg.Agent.FrequencyPenalty,
		PresencePenalty:  cfg.Agent.PresencePenalty,
		N:                cfg.Agent.Choices,
		WorldEnabled:     cfg.Agent.WorldEnabled,
	}
}

// buildAgent wires a context store, gateway, capability registry and engine
// from config. When session is non-empty the store's buffers are restored
// from the latest snapshot of that session.
func buildAgent(ctx context.Context, cfg *config.Config, session string) (*agent.Engine, *agentctx.Store, snapshot.Store, error) {
	store, err := openSnapshotStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	actx := agentctx.NewStoreWithSession(session, settingsFrom(cfg))
	if session != "" {
		snap, err := store.Load(ctx, session)
		switch {
		case err == snapshot.ErrNotFound:
			logger.InfoCF("main", "no snapshot for session, starting fresh", map[string]any{
				"session_id": session,
			})
		case err != nil:
			store.Close()
			return nil, nil, nil, err
		default:
			actx.ReplaceWorld(snap.World)
			actx.ReplaceTask(snap.Task)
			actx.ReplaceExecution(snap.Execution)
		}
	}

	registry := capability.BuiltinRegistry(cfg, store, actx)
	engine := agent.NewEngine(actx, buildGateway(cfg), registry, store)
	return engine, actx, store, nil
}
