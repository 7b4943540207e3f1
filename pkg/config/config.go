// Package config loads the single JSON configuration document described
// in the spec: vllm endpoint settings, the workspace root, the security
// envelope, memory/audit file paths, loop bounds, and debug toggles. JSON
// values are overlaid with environment variables via struct tags, the
// same pattern the teacher applies to its own configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/coreloop/agentcore/pkg/utils"
)

// VLLMConfig describes the OpenAI-compatible Chat Completions endpoint.
type VLLMConfig struct {
	BaseURL               string  `json:"base_url" env:"AGENTCORE_VLLM_BASE_URL"`
	Model                 string  `json:"model" env:"AGENTCORE_VLLM_MODEL"`
	APIKey                string  `json:"api_key" env:"AGENTCORE_VLLM_API_KEY"`
	Temperature           float64 `json:"temperature" env:"AGENTCORE_VLLM_TEMPERATURE"`
	MaxTokens             int     `json:"max_tokens" env:"AGENTCORE_VLLM_MAX_TOKENS"`
	EnableFunctionCalling bool    `json:"enable_function_calling" env:"AGENTCORE_VLLM_ENABLE_FUNCTION_CALLING"`
}

// WorkspaceConfig names the sandbox root every path-bearing tool resolves
// against.
type WorkspaceConfig struct {
	Dir string `json:"dir" env:"AGENTCORE_WORKSPACE_DIR"`
}

// SecurityConfig is the source for pkg/constraints.Constraints.
type SecurityConfig struct {
	AllowedCommands []string `json:"allowed_commands" env:"AGENTCORE_SECURITY_ALLOWED_COMMANDS" envSeparator:","`
	TimeoutSec      int      `json:"timeout_sec" env:"AGENTCORE_SECURITY_TIMEOUT_SEC"`
	MaxOutputSize   int      `json:"max_output_size" env:"AGENTCORE_SECURITY_MAX_OUTPUT_SIZE"`
	ExecEnabled     bool     `json:"exec_enabled" env:"AGENTCORE_SECURITY_EXEC_ENABLED"`
}

// MemoryConfig names the persistent fact-store file.
type MemoryConfig struct {
	Path string `json:"path" env:"AGENTCORE_MEMORY_PATH"`
}

// AuditConfig names the append-only JSON-Lines audit file.
type AuditConfig struct {
	LogPath string `json:"log_path" env:"AGENTCORE_AUDIT_LOG_PATH"`
}

// AgentConfig bounds the loop controller.
type AgentConfig struct {
	MaxLoops    int     `json:"max_loops" env:"AGENTCORE_AGENT_MAX_LOOPS"`
	LoopWaitSec float64 `json:"loop_wait_sec" env:"AGENTCORE_AGENT_LOOP_WAIT_SEC"`
}

// DebugConfig gates structured logging verbosity and per-component
// toggles.
type DebugConfig struct {
	Enabled    bool            `json:"enabled" env:"AGENTCORE_DEBUG_ENABLED"`
	Level      string          `json:"level" env:"AGENTCORE_DEBUG_LEVEL"`
	Components map[string]bool `json:"components"`
}

// Config is the single JSON configuration document.
type Config struct {
	VLLM      VLLMConfig      `json:"vllm"`
	Workspace WorkspaceConfig `json:"workspace"`
	Security  SecurityConfig  `json:"security"`
	Memory    MemoryConfig    `json:"memory"`
	Audit     AuditConfig     `json:"audit"`
	Agent     AgentConfig     `json:"agent"`
	Debug     DebugConfig     `json:"debug"`
}

// Default returns the configuration used when no file is present, matching
// the literal scenario default of max_loops = 5.
func Default() *Config {
	return &Config{
		VLLM: VLLMConfig{
			BaseURL:               "http://localhost:8000/v1",
			Model:                 "local-model",
			Temperature:           0,
			MaxTokens:             4096,
			EnableFunctionCalling: true,
		},
		Workspace: WorkspaceConfig{Dir: "./workspace"},
		Security: SecurityConfig{
			AllowedCommands: []string{"ls", "cat", "grep", "find", "wc", "echo", "head", "tail"},
			TimeoutSec:      30,
			MaxOutputSize:   8192,
			ExecEnabled:     true,
		},
		Memory: MemoryConfig{Path: "./data/memory.json"},
		Audit:  AuditConfig{LogPath: "./data/audit.jsonl"},
		Agent:  AgentConfig{MaxLoops: 5, LoopWaitSec: 0.5},
		Debug:  DebugConfig{Enabled: false, Level: "info"},
	}
}

// Load reads path, falling back to Default() when the file is absent, then
// applies environment overrides via caarlos0/env struct tags.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the required fields the rest of the system assumes are
// populated.
func (c *Config) Validate() error {
	if c.VLLM.BaseURL == "" {
		return fmt.Errorf("config: vllm.base_url is required")
	}
	if c.VLLM.Model == "" {
		return fmt.Errorf("config: vllm.model is required")
	}
	if c.Workspace.Dir == "" {
		return fmt.Errorf("config: workspace.dir is required")
	}
	if c.Agent.MaxLoops <= 0 {
		return fmt.Errorf("config: agent.max_loops must be positive")
	}
	if c.Security.TimeoutSec <= 0 {
		return fmt.Errorf("config: security.timeout_sec must be positive")
	}
	if c.Security.MaxOutputSize <= 0 {
		return fmt.Errorf("config: security.max_output_size must be positive")
	}
	return nil
}

// Save writes cfg to path as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create config dir: %w", err)
	}
	return utils.WritePrivateFile(path, data)
}
