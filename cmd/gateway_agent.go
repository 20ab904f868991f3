package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rustyclaw/rustyclaw/internal/agent"
	"github.com/rustyclaw/rustyclaw/internal/bootstrap"
	"github.com/rustyclaw/rustyclaw/internal/bus"
	"github.com/rustyclaw/rustyclaw/internal/config"
	"github.com/rustyclaw/rustyclaw/internal/providers"
	"github.com/rustyclaw/rustyclaw/internal/sandbox"
	"github.com/rustyclaw/rustyclaw/internal/skills"
	"github.com/rustyclaw/rustyclaw/internal/store"
	"github.com/rustyclaw/rustyclaw/internal/tools"
)

// createAgentLoop builds a standalone-mode Loop for agentID and
// registers it on router. All agents the gateway creates this way share
// the process's one provider registry, tool registry and session
// store; only the per-agent config (model, workspace, skill allowlist)
// differs.
func createAgentLoop(
	agentID string,
	cfg *config.Config,
	router *agent.Router,
	providerReg *providers.Registry,
	msgBus bus.EventPublisher,
	sessStore store.SessionStore,
	toolsReg *tools.Registry,
	toolPolicy *tools.PolicyEngine,
	contextFiles []bootstrap.ContextFile,
	skillsLoader *skills.Loader,
	hasMemory bool,
	sandboxMgr sandbox.Manager,
	agentStore store.AgentStore,
	ensureUserFiles agent.EnsureUserFilesFunc,
	contextFileLoader agent.ContextFileLoaderFunc,
) error {
	agentCfg := cfg.ResolveAgent(agentID)

	provider, err := providerReg.Get(agentCfg.Provider)
	if err != nil {
		names := providerReg.List()
		if len(names) == 0 {
			return fmt.Errorf("no providers configured")
		}
		provider, _ = providerReg.Get(names[0])
		slog.Warn("configured provider not found, using fallback",
			"agent", agentID, "wanted", agentCfg.Provider, "using", names[0])
	}

	workspace := config.ExpandHome(agentCfg.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("create workspace for agent %s: %w", agentID, err)
	}

	var skillAllowList []string
	if spec, ok := cfg.Agents.List[agentID]; ok {
		skillAllowList = spec.Skills
	}

	onEvent := func(evt agent.AgentEvent) {
		slog.Debug("agent event", "agent", agentID, "type", evt.Type)
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:                agentID,
		Provider:          provider,
		ProviderReg:       providerReg,
		Model:             agentCfg.Model,
		ContextWindow:     agentCfg.ContextWindow,
		MaxIterations:     agentCfg.MaxToolIterations,
		Workspace:         workspace,
		Bus:               msgBus,
		Sessions:          sessStore,
		Tools:             toolsReg,
		ToolPolicy:        toolPolicy,
		OnEvent:           onEvent,
		OwnerIDs:          cfg.Gateway.OwnerIDs,
		SkillsLoader:      skillsLoader,
		SkillAllowList:    skillAllowList,
		HasMemory:         hasMemory,
		ContextFiles:      contextFiles,
		EnsureUserFiles:   ensureUserFiles,
		ContextFileLoader: contextFileLoader,
		CompactionCfg:     agentCfg.Compaction,
		ContextPruningCfg: agentCfg.ContextPruning,
		SandboxEnabled:    sandboxMgr != nil,
		InjectionAction:   cfg.Gateway.InjectionAction,
	})
	_ = agentStore // file-based per-agent metadata is wired by wireStandaloneExtras' interceptors, not here

	router.Register(agentID, loop)
	slog.Info("agent created", "agent", agentID, "model", agentCfg.Model, "provider", provider.Name())
	return nil
}
