package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// BroadcastMode decodes the broadcast setting, which is either the boolean
// false or one of the strings "agents" and "human".
type BroadcastMode struct {
	Mode broadcast.Mode
}

func (m *BroadcastMode) set(v any) error {
	mode, err := broadcast.ParseMode(v)
	if err != nil {
		return err
	}
	m.Mode = mode
	return nil
}

func (m *BroadcastMode) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return m.set(v)
}

func (m BroadcastMode) MarshalJSON() ([]byte, error) {
	if m.Mode == broadcast.ModeDisabled {
		return []byte("false"), nil
	}
	return json.Marshal(string(m.Mode))
}

func (m *BroadcastMode) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return m.set(v)
}

// UnmarshalTOML implements toml.Unmarshaler.
func (m *BroadcastMode) UnmarshalTOML(v any) error {
	return m.set(v)
}
