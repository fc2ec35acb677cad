// Package batch implements the experiment configuration document loader and
// the worker-pool batch runner of 4.G.
package batch

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/agent-verify/harness/internal/harness/scheduler"
)

// LLMConfig is the model-provider portion of a harness run's configuration,
// grounded on agent_verify.config.LLMConfig.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// HarnessConfig is one agent run's full configuration document, grounded on
// agent_verify.config.HarnessConfig.
type HarnessConfig struct {
	LLM                     LLMConfig             `yaml:"llm"`
	VerificationMethod      string                `yaml:"verification_method"`
	VerificationGranularity scheduler.Granularity `yaml:"verification_granularity"`
	RecoveryStrategy        string                `yaml:"recovery_strategy"`
	MaxIterations           int                   `yaml:"max_iterations"`
	MaxRecoveryAttempts     int                   `yaml:"max_recovery_attempts"`
	MaxTokensBudget         int64                 `yaml:"max_tokens_budget"`
	TimeoutSeconds          int                   `yaml:"timeout_seconds"`
	SystemPrompt            string                `yaml:"system_prompt"`
	WorkspaceDir            string                `yaml:"workspace_dir"`
}

// ToSchedulerConfig translates the YAML document shape into the scheduler's
// Config, filling in DefaultConfig() for any zero-valued fields.
func (h HarnessConfig) ToSchedulerConfig() scheduler.Config {
	cfg := scheduler.DefaultConfig()
	if h.LLM.Model != "" {
		cfg.Model = h.LLM.Model
	}
	if h.LLM.MaxTokens != 0 {
		cfg.MaxTokens = h.LLM.MaxTokens
	}
	cfg.Temperature = h.LLM.Temperature
	if h.VerificationMethod != "" {
		cfg.VerificationMethod = h.VerificationMethod
	}
	if h.VerificationGranularity != "" {
		cfg.VerificationGranularity = h.VerificationGranularity
	}
	if h.RecoveryStrategy != "" {
		cfg.RecoveryStrategy = h.RecoveryStrategy
	}
	if h.MaxIterations != 0 {
		cfg.MaxIterations = h.MaxIterations
	}
	if h.MaxRecoveryAttempts != 0 {
		cfg.MaxRecoveryAttempts = h.MaxRecoveryAttempts
	}
	if h.MaxTokensBudget != 0 {
		cfg.MaxTokensBudget = h.MaxTokensBudget
	}
	if h.TimeoutSeconds != 0 {
		cfg.TimeoutSeconds = h.TimeoutSeconds
	}
	if h.SystemPrompt != "" {
		cfg.SystemPrompt = h.SystemPrompt
	}
	if h.WorkspaceDir != "" {
		cfg.WorkspaceDir = h.WorkspaceDir
	}
	return cfg
}

// ExperimentConfig is a full experiment's configuration document, grounded
// on agent_verify.config.ExperimentConfig. NumTrials and Seed are
// supplemented fields from the original implementation (§12) that spec.md's
// Task/Result types never named.
type ExperimentConfig struct {
	ExperimentID string        `yaml:"experiment_id"`
	Harness      HarnessConfig `yaml:"harness"`
	Benchmark    string        `yaml:"benchmark"`
	InstanceIDs  []string      `yaml:"instance_ids"`
	NumTrials    int           `yaml:"num_trials"`
	OutputDir    string        `yaml:"output_dir"`
	Seed         int64         `yaml:"seed"`
}

// LoadConfig reads an experiment configuration document from a YAML file,
// overlaying process environment variables from a local .env file first
// (godotenv, §10/§11, best-effort). When the document leaves api_key empty,
// the key is taken from the provider's standard environment variable (see
// envVarForProvider). Values in the document itself are used as written;
// `${VAR}` references in it are not expanded.
func LoadConfig(path string) (ExperimentConfig, error) {
	_ = godotenv.Load() // best-effort; absence of .env is not an error

	data, err := os.ReadFile(path)
	if err != nil {
		return ExperimentConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg ExperimentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ExperimentConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.NumTrials <= 0 {
		cfg.NumTrials = 1
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "results"
	}
	if cfg.Harness.LLM.APIKey == "" {
		cfg.Harness.LLM.APIKey = os.Getenv(envVarForProvider(cfg.Harness.LLM.Provider))
	}
	return cfg, nil
}

// envVarForProvider names the standard environment variable each provider's
// credential is read from (§6 "Model API credentials read from process
// environment via standard provider names").
func envVarForProvider(provider string) string {
	switch provider {
	case "openai", "vllm", "local":
		return "OPENAI_API_KEY"
	default:
		return "ANTHROPIC_API_KEY"
	}
}
