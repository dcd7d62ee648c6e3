// Package config loads agentco configuration from .agentco/config.yaml,
// AGENTCO_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Directory and file names relative to the working directory.
const (
	DirName  = ".agentco"
	FileName = "config.yaml"
)

// Config is the agentco configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir" yaml:"data_dir"`
	Agent    AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`
	Judgment JudgmentConfig `mapstructure:"judgment" yaml:"judgment"`
	QA       QAConfig       `mapstructure:"qa" yaml:"qa"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// AgentConfig selects and tunes the coding agent adapter.
type AgentConfig struct {
	Default        string            `mapstructure:"default" yaml:"default"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Model          string            `mapstructure:"model" yaml:"model,omitempty"`
	AllowedTools   []string          `mapstructure:"allowed_tools" yaml:"allowed_tools,omitempty"`
	SystemPrompt   string            `mapstructure:"system_prompt" yaml:"system_prompt,omitempty"`
	Commands       map[string]string `mapstructure:"commands" yaml:"commands,omitempty"`
}

// DispatchConfig bounds concurrent and repeated dispatch. Grandchildren
// sharing a working directory run one at a time; Worktrees gives each its
// own git worktree under <data_dir>/worktrees so they can run in parallel.
type DispatchConfig struct {
	MaxParallel int  `mapstructure:"max_parallel" yaml:"max_parallel"`
	MaxAttempts int  `mapstructure:"max_attempts" yaml:"max_attempts"`
	Worktrees   bool `mapstructure:"worktrees" yaml:"worktrees"`
}

// JudgmentConfig tunes the quality gate.
type JudgmentConfig struct {
	CoverageThreshold float64 `mapstructure:"coverage_threshold" yaml:"coverage_threshold"`
}

// QAConfig names the commands run in the working directory after an agent
// finishes. Empty commands mean the agent output itself is parsed.
type QAConfig struct {
	TestCommand    string `mapstructure:"test_command" yaml:"test_command,omitempty"`
	LintCommand    string `mapstructure:"lint_command" yaml:"lint_command,omitempty"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		DataDir: DirName,
		Agent: AgentConfig{
			Default:        "claude",
			TimeoutSeconds: 600,
		},
		Dispatch: DispatchConfig{
			MaxParallel: 2,
			MaxAttempts: 3,
		},
		Judgment: JudgmentConfig{
			CoverageThreshold: 80,
		},
		QA: QAConfig{
			TimeoutSeconds: 600,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// NewViper returns a viper instance carrying the defaults and reading
// AGENTCO_* environment overrides (AGENTCO_JUDGMENT_COVERAGE_THRESHOLD
// overrides judgment.coverage_threshold).
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("agent.default", d.Agent.Default)
	v.SetDefault("agent.timeout_seconds", d.Agent.TimeoutSeconds)
	v.SetDefault("agent.model", d.Agent.Model)
	v.SetDefault("agent.allowed_tools", d.Agent.AllowedTools)
	v.SetDefault("agent.system_prompt", d.Agent.SystemPrompt)
	v.SetDefault("dispatch.max_parallel", d.Dispatch.MaxParallel)
	v.SetDefault("dispatch.max_attempts", d.Dispatch.MaxAttempts)
	v.SetDefault("dispatch.worktrees", d.Dispatch.Worktrees)
	v.SetDefault("judgment.coverage_threshold", d.Judgment.CoverageThreshold)
	v.SetDefault("qa.test_command", d.QA.TestCommand)
	v.SetDefault("qa.lint_command", d.QA.LintCommand)
	v.SetDefault("qa.timeout_seconds", d.QA.TimeoutSeconds)
	v.SetDefault("log.level", d.Log.Level)

	v.SetEnvPrefix("AGENTCO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v and returns the validated
// result. An empty path means <cwd>/.agentco/config.yaml; a missing
// default file is not an error, a missing explicit file is.
func Load(v *viper.Viper, path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = Path(wd)
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the config is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config.data_dir is required")
	}
	if c.Agent.Default == "" {
		return fmt.Errorf("config.agent.default is required")
	}
	if c.Agent.TimeoutSeconds <= 0 {
		return fmt.Errorf("config.agent.timeout_seconds must be positive")
	}
	if c.Dispatch.MaxParallel < 1 {
		return fmt.Errorf("config.dispatch.max_parallel must be at least 1")
	}
	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("config.dispatch.max_attempts must be at least 1")
	}
	if c.Judgment.CoverageThreshold > 100 {
		return fmt.Errorf("config.judgment.coverage_threshold must not exceed 100")
	}
	if c.QA.TimeoutSeconds <= 0 {
		return fmt.Errorf("config.qa.timeout_seconds must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	return nil
}

// Path returns the config file path for a working directory.
func Path(dir string) string {
	return filepath.Join(dir, DirName, FileName)
}

// WriteDefault writes the default configuration to path. An existing file
// is left untouched and reported as false.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write config: %w", err)
	}
	return true, nil
}
