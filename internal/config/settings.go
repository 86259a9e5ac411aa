// Package config loads broadcast and team settings from JSON, YAML and TOML
// files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// ErrUnsupportedFormat is returned for settings files with an unknown extension.
var ErrUnsupportedFormat = errors.New("config: unsupported settings format")

// Settings holds merged configuration from multiple sources.
// Later sources override earlier ones (user < project < local).
type Settings struct {
	Model        string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty" yaml:"systemPrompt,omitempty" toml:"systemPrompt,omitempty"`
	MaxTurns     int    `json:"maxTurns,omitempty" yaml:"maxTurns,omitempty" toml:"maxTurns,omitempty"`

	// Broadcast is false, "agents" or "human". nil means not set.
	Broadcast *BroadcastMode `json:"broadcast,omitempty" yaml:"broadcast,omitempty" toml:"broadcast,omitempty"`
	// BroadcastTimeout is in seconds. 0 is meaningful, so nil means not set.
	BroadcastTimeout      *float64 `json:"broadcastTimeout,omitempty" yaml:"broadcastTimeout,omitempty" toml:"broadcastTimeout,omitempty"`
	MaxBroadcastsPerAgent int      `json:"maxBroadcastsPerAgent,omitempty" yaml:"maxBroadcastsPerAgent,omitempty" toml:"maxBroadcastsPerAgent,omitempty"`
	BroadcastSensitivity  string   `json:"broadcastSensitivity,omitempty" yaml:"broadcastSensitivity,omitempty" toml:"broadcastSensitivity,omitempty"`
	MaxConcurrentShadows  int      `json:"maxConcurrentShadows,omitempty" yaml:"maxConcurrentShadows,omitempty" toml:"maxConcurrentShadows,omitempty"`
	WorkflowTools         []string `json:"workflowTools,omitempty" yaml:"workflowTools,omitempty" toml:"workflowTools,omitempty"`

	// QAStore is where human answers are persisted: a directory of JSON files, a .db
	// path, or empty for memory only.
	QAStore string `json:"qaStore,omitempty" yaml:"qaStore,omitempty" toml:"qaStore,omitempty"`

	Agents []AgentSettings `json:"agents,omitempty" yaml:"agents,omitempty" toml:"agents,omitempty"`
}

// AgentSettings describes one team member.
type AgentSettings struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Persona string `json:"persona,omitempty" yaml:"persona,omitempty" toml:"persona,omitempty"`
	Model   string `json:"model,omitempty" yaml:"model,omitempty" toml:"model,omitempty"`
}

// LoadSettings merges settings from multiple files. Later paths override
// earlier ones. Missing files are skipped; malformed files are an error.
func LoadSettings(paths ...string) (*Settings, error) {
	merged := &Settings{}
	for _, path := range paths {
		s, err := loadSettingsFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		mergeSettings(merged, s)
	}
	return merged, nil
}

// DefaultSettingsPaths returns the standard settings file search paths.
func DefaultSettingsPaths(projectDir string) []string {
	var paths []string
	if home, _ := os.UserHomeDir(); home != "" {
		paths = append(paths, filepath.Join(home, ".ask-others", "settings.yaml"))
	}
	if projectDir != "" {
		paths = append(paths,
			filepath.Join(projectDir, "ask-others.json"),
			filepath.Join(projectDir, "ask-others.yaml"),
			filepath.Join(projectDir, "ask-others.toml"),
		)
	}
	return paths
}

func loadSettingsFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &s)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &s, nil
}

func mergeSettings(dst, src *Settings) {
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.SystemPrompt != "" {
		dst.SystemPrompt = src.SystemPrompt
	}
	if src.MaxTurns > 0 {
		dst.MaxTurns = src.MaxTurns
	}
	if src.Broadcast != nil {
		dst.Broadcast = src.Broadcast
	}
	if src.BroadcastTimeout != nil {
		dst.BroadcastTimeout = src.BroadcastTimeout
	}
	if src.MaxBroadcastsPerAgent > 0 {
		dst.MaxBroadcastsPerAgent = src.MaxBroadcastsPerAgent
	}
	if src.BroadcastSensitivity != "" {
		dst.BroadcastSensitivity = src.BroadcastSensitivity
	}
	if src.MaxConcurrentShadows > 0 {
		dst.MaxConcurrentShadows = src.MaxConcurrentShadows
	}
	if len(src.WorkflowTools) > 0 {
		dst.WorkflowTools = src.WorkflowTools
	}
	if src.QAStore != "" {
		dst.QAStore = src.QAStore
	}
	if len(src.Agents) > 0 {
		dst.Agents = src.Agents
	}
}

// BroadcastConfig resolves the broadcast settings, applying defaults for
// anything unset.
func (s *Settings) BroadcastConfig() (broadcast.Config, error) {
	cfg := broadcast.DefaultConfig()
	if s.Broadcast != nil {
		cfg.Mode = s.Broadcast.Mode
	}
	if s.BroadcastTimeout != nil {
		cfg.Timeout = time.Duration(*s.BroadcastTimeout * float64(time.Second))
	}
	if s.MaxBroadcastsPerAgent > 0 {
		cfg.MaxPerAgent = s.MaxBroadcastsPerAgent
	}
	sens, err := broadcast.ParseSensitivity(s.BroadcastSensitivity)
	if err != nil {
		return broadcast.Config{}, err
	}
	cfg.Sensitivity = sens
	cfg.MaxConcurrentShadows = s.MaxConcurrentShadows
	if len(s.WorkflowTools) > 0 {
		cfg.WorkflowTools = s.WorkflowTools
	}
	if err := cfg.Validate(); err != nil {
		return broadcast.Config{}, err
	}
	return cfg, nil
}
