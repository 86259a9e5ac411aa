package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LoadPersonas reads every .md file in dir as an agent persona keyed by file
// name without extension. The content is used verbatim as the system prompt.
func LoadPersonas(dir string) ([]AgentSettings, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var agents []AgentSettings
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		agents = append(agents, AgentSettings{
			Name:    strings.TrimSuffix(entry.Name(), ".md"),
			Persona: string(content),
		})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].Name < agents[j].Name })
	return agents, nil
}
