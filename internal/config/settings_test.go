package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettings_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.json", `{
		"model": "claude-sonnet-4-5",
		"maxTurns": 10,
		"broadcast": "agents",
		"broadcastTimeout": 30,
		"maxBroadcastsPerAgent": 3,
		"broadcastSensitivity": "high"
	}`)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", s.Model)
	assert.Equal(t, 10, s.MaxTurns)
	require.NotNil(t, s.Broadcast)
	assert.Equal(t, broadcast.ModeAgents, s.Broadcast.Mode)

	cfg, err := s.BroadcastConfig()
	require.NoError(t, err)
	assert.Equal(t, broadcast.ModeAgents, cfg.Mode)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.MaxPerAgent)
	assert.Equal(t, broadcast.SensitivityHigh, cfg.Sensitivity)
}

func TestLoadSettings_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.yaml", `
broadcast: human
broadcastTimeout: 5
qaStore: answers.db
agents:
  - name: alice
    persona: You are Alice.
  - name: bob
    model: claude-haiku-4-5
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, broadcast.ModeHuman, s.Broadcast.Mode)
	assert.Equal(t, "answers.db", s.QAStore)
	require.Len(t, s.Agents, 2)
	assert.Equal(t, "You are Alice.", s.Agents[0].Persona)
	assert.Equal(t, "claude-haiku-4-5", s.Agents[1].Model)

	cfg, err := s.BroadcastConfig()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadSettings_TOML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.toml", `
broadcast = "agents"
broadcastTimeout = 1.5
workflowTools = ["vote", "submit_*"]

[[agents]]
name = "alice"
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, broadcast.ModeAgents, s.Broadcast.Mode)

	cfg, err := s.BroadcastConfig()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, []string{"vote", "submit_*"}, cfg.WorkflowTools)
	require.Len(t, s.Agents, 1)
}

func TestLoadSettings_BroadcastFalse(t *testing.T) {
	dir := t.TempDir()
	for _, path := range []string{
		writeFile(t, dir, "a.json", `{"broadcast": false}`),
		writeFile(t, dir, "b.yaml", "broadcast: false\n"),
		writeFile(t, dir, "c.toml", "broadcast = false\n"),
	} {
		s, err := LoadSettings(path)
		require.NoError(t, err, path)
		require.NotNil(t, s.Broadcast, path)
		assert.Equal(t, broadcast.ModeDisabled, s.Broadcast.Mode, path)
	}
}

func TestLoadSettings_BroadcastTrueRejected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.json", `{"broadcast": true}`)
	_, err := LoadSettings(path)
	assert.ErrorIs(t, err, broadcast.ErrInvalidMode)
}

func TestLoadSettings_MergeOrder(t *testing.T) {
	dir := t.TempDir()
	user := writeFile(t, dir, "user.yaml", "model: claude-haiku\nmaxTurns: 5\nbroadcast: agents\nbroadcastTimeout: 60\n")
	project := writeFile(t, dir, "project.json", `{"model": "claude-sonnet", "broadcast": false, "broadcastTimeout": 0}`)

	s, err := LoadSettings(user, project)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", s.Model, "project should override user")
	assert.Equal(t, 5, s.MaxTurns, "user value preserved when project doesn't set it")
	assert.Equal(t, broadcast.ModeDisabled, s.Broadcast.Mode, "explicit false overrides")

	cfg, err := s.BroadcastConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.Timeout, "explicit zero overrides")
}

func TestLoadSettings_MissingFileSkipped(t *testing.T) {
	s, err := LoadSettings("/nonexistent/path.json")
	require.NoError(t, err)
	assert.Equal(t, "", s.Model)
	assert.Nil(t, s.Broadcast)
}

func TestLoadSettings_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.json", "not json")
	_, err := LoadSettings(path)
	assert.Error(t, err)
}

func TestLoadSettings_UnsupportedFormat(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.ini", "model=x")
	_, err := LoadSettings(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBroadcastConfig_Defaults(t *testing.T) {
	cfg, err := (&Settings{}).BroadcastConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
	assert.Equal(t, broadcast.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, broadcast.DefaultMaxPerAgent, cfg.MaxPerAgent)
	assert.Equal(t, broadcast.SensitivityMedium, cfg.Sensitivity)
}

func TestBroadcastConfig_BadSensitivity(t *testing.T) {
	_, err := (&Settings{BroadcastSensitivity: "extreme"}).BroadcastConfig()
	assert.ErrorIs(t, err, broadcast.ErrInvalidSensitivity)
}

func TestBroadcastMode_MarshalJSON(t *testing.T) {
	data, err := BroadcastMode{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "false", string(data))

	data, err = BroadcastMode{Mode: broadcast.ModeHuman}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"human"`, string(data))
}

func TestDefaultSettingsPaths(t *testing.T) {
	paths := DefaultSettingsPaths("/myproject")
	assert.Contains(t, paths, filepath.Join("/myproject", "ask-others.yaml"))
	assert.Contains(t, paths, filepath.Join("/myproject", "ask-others.toml"))
}
