// Package wire provides dependency injection for agentco.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/agent"
	cliadapter "github.com/kawanishi0117/agent-company-sub008/internal/adapters/cli"
	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/filestore"
	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/filesystem"
	"github.com/kawanishi0117/agent-company-sub008/internal/adapters/sqlite"
	"github.com/kawanishi0117/agent-company-sub008/internal/app"
	"github.com/kawanishi0117/agent-company-sub008/internal/config"
	corejudgment "github.com/kawanishi0117/agent-company-sub008/internal/core/judgment"
	"github.com/kawanishi0117/agent-company-sub008/internal/db"
	"github.com/kawanishi0117/agent-company-sub008/internal/logging"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/primary"
	"github.com/kawanishi0117/agent-company-sub008/internal/ports/secondary"
)

var (
	settings   = config.NewViper()
	configFile string

	cfg      *config.Config
	logger   *slog.Logger
	database *sql.DB
	waivers  *filestore.WaiverSource

	ticketService   primary.TicketService
	judgmentService primary.JudgmentService
	dispatchService primary.DispatchService
	agentService    primary.AgentService

	once    sync.Once
	initErr error
)

// Viper returns the settings instance that command-line flags bind to.
func Viper() *viper.Viper {
	return settings
}

// SetConfigFile selects an explicit config file. Must be called before Init.
func SetConfigFile(path string) {
	configFile = path
}

// Init loads the configuration and builds every service.
// This is called once via sync.Once; later calls return the first result.
func Init() error {
	once.Do(initServices)
	return initErr
}

// LoadConfig reads the configuration without building any service.
func LoadConfig() (*config.Config, error) {
	return config.Load(settings, configFile)
}

// Close releases the run ledger connection.
func Close() error {
	if database == nil {
		return nil
	}
	return database.Close()
}

// initServices initializes all services and their dependencies.
func initServices() {
	c, err := LoadConfig()
	if err != nil {
		initErr = err
		return
	}
	cfg = c

	logger, err = logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		initErr = err
		return
	}

	database, err = db.Open(db.PathIn(cfg.DataDir))
	if err != nil {
		initErr = fmt.Errorf("failed to initialize database: %w", err)
		return
	}

	// Secondary adapters
	ticketStore := filestore.NewTicketStore(cfg.DataDir)
	judgmentStore := filestore.NewJudgmentStore(cfg.DataDir)
	artifactStore := filestore.NewArtifactStore(cfg.DataDir)
	waivers = filestore.NewWaiverSource(cfg.DataDir)
	runRepo := sqlite.NewRunRepository(database)
	runner := agent.NewRunner(logger, filesystem.NewChangeDetector())
	var workspaces secondary.WorkspaceProvider = filesystem.SharedWorkspace{}
	if cfg.Dispatch.Worktrees {
		workspaces = filesystem.NewWorktreeManager(filepath.Join(cfg.DataDir, "worktrees"))
	}
	registry := agent.NewDefaultRegistry(runner, cfg.Agent.Commands)

	// Services (primary ports implementation)
	tickets := app.NewTicketService(ticketStore, logger)
	judgments := app.NewJudgmentService(runRepo, judgmentStore, waivers,
		corejudgment.Policy{CoverageThreshold: cfg.Judgment.CoverageThreshold}, logger)

	ticketService = tickets
	judgmentService = judgments
	dispatchService = app.NewDispatchService(tickets, judgments, registry, runRepo, artifactStore, agent.NewShellRunner(), workspaces,
		app.DispatchOptions{
			DefaultAgent:   cfg.Agent.Default,
			Model:          cfg.Agent.Model,
			AllowedTools:   cfg.Agent.AllowedTools,
			SystemPrompt:   cfg.Agent.SystemPrompt,
			TimeoutSeconds: cfg.Agent.TimeoutSeconds,
			MaxParallel:    cfg.Dispatch.MaxParallel,
			MaxAttempts:    cfg.Dispatch.MaxAttempts,
			TestCommand:    cfg.QA.TestCommand,
			LintCommand:    cfg.QA.LintCommand,
			QATimeout:      time.Duration(cfg.QA.TimeoutSeconds) * time.Second,
		}, logger)
	agentService = app.NewAgentService(registry, cfg.Agent.Default)

	logger.Debug("services initialized", "data_dir", cfg.DataDir, "agent", cfg.Agent.Default)
}

// Config returns the loaded configuration.
func Config() *config.Config {
	once.Do(initServices)
	return cfg
}

// TicketAdapter returns a new TicketAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func TicketAdapter() *cliadapter.TicketAdapter {
	return TicketAdapterWithOutput(os.Stdout)
}

// TicketAdapterWithOutput returns a new TicketAdapter writing to the given output.
func TicketAdapterWithOutput(out io.Writer) *cliadapter.TicketAdapter {
	once.Do(initServices)
	return cliadapter.NewTicketAdapter(ticketService, out)
}

// DispatchAdapter returns a new DispatchAdapter writing to stdout.
func DispatchAdapter() *cliadapter.DispatchAdapter {
	once.Do(initServices)
	return cliadapter.NewDispatchAdapter(dispatchService, os.Stdout)
}

// JudgmentAdapter returns a new JudgmentAdapter writing to stdout.
func JudgmentAdapter() *cliadapter.JudgmentAdapter {
	once.Do(initServices)
	return cliadapter.NewJudgmentAdapter(judgmentService, os.Stdout)
}

// AgentAdapter returns a new AgentAdapter writing to stdout.
func AgentAdapter() *cliadapter.AgentAdapter {
	once.Do(initServices)
	return cliadapter.NewAgentAdapter(agentService, os.Stdout)
}

// WaiverAdapter returns a new WaiverAdapter writing to stdout.
func WaiverAdapter() *cliadapter.WaiverAdapter {
	once.Do(initServices)
	return cliadapter.NewWaiverAdapter(waivers, os.Stdout)
}
