package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	agent "github.com/armatrix/agent-broadcast-go"
	"github.com/armatrix/agent-broadcast-go/broadcast"
	"github.com/armatrix/agent-broadcast-go/human"
	"github.com/armatrix/agent-broadcast-go/internal/config"
	"github.com/armatrix/agent-broadcast-go/qastore"
	"github.com/armatrix/agent-broadcast-go/teams"
)

// newBackend builds the model backend. Tests replace it.
var newBackend = func() agent.Backend { return agent.NewAnthropicBackend() }

var defaultAgents = []string{"alice", "bob", "carol"}

const defaultSession = "default"

type runFlags struct {
	configs   []string
	mode      string
	timeout   time.Duration
	personas  string
	agents    []string
	model     string
	qaStore   string
	sessionID string
	channel   string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run every agent on the task in parallel",
		Long: "Runs a team of agents on the same task. With broadcast enabled each agent gets the " +
			"ask_others tool: in agents mode the other agents' shadows answer, in human mode you do.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTeam(cmd, f, strings.Join(args, " "))
		},
	}

	wd, _ := os.Getwd()
	cmd.Flags().StringSliceVarP(&f.configs, "config", "c", config.DefaultSettingsPaths(wd), "settings files (json, yaml, toml); later files win")
	cmd.Flags().StringVar(&f.mode, "broadcast", "", `broadcast mode: "false", "agents" or "human"`)
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "broadcast timeout")
	cmd.Flags().StringVar(&f.personas, "personas", "", "directory of <name>.md persona files")
	cmd.Flags().StringSliceVar(&f.agents, "agent", nil, "agent names (default alice,bob,carol)")
	cmd.Flags().StringVar(&f.model, "model", "", "model for every agent")
	cmd.Flags().StringVar(&f.qaStore, "qa-store", "", "where human answers are kept (.db for SQLite, otherwise a directory)")
	cmd.Flags().StringVar(&f.sessionID, "session", defaultSession, "session id for the human Q&A log")
	cmd.Flags().StringVar(&f.channel, "human", "auto", "human channel: auto, terminal or line")
	return cmd
}

func runTeam(cmd *cobra.Command, f runFlags, task string) error {
	settings, err := config.LoadSettings(f.configs...)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, settings, f); err != nil {
		return err
	}
	cfg, err := settings.BroadcastConfig()
	if err != nil {
		return err
	}

	members, err := teamMembers(settings, f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	store, err := qastore.Open(settings.QAStore)
	if err != nil {
		return err
	}
	defer store.Close()

	shared := []agent.AgentOption{agent.WithBackend(newBackend())}
	if settings.Model != "" {
		shared = append(shared, agent.WithModel(anthropic.Model(settings.Model)))
	}
	if settings.MaxTurns > 0 {
		shared = append(shared, agent.WithMaxTurns(settings.MaxTurns))
	}

	opts := []teams.Option{
		teams.WithBroadcast(cfg),
		teams.WithAgentOptions(shared...),
	}
	if cfg.Mode == broadcast.ModeHuman {
		prompter, err := humanChannel(cmd, f.channel)
		if err != nil {
			return err
		}
		opts = append(opts, teams.WithPrompter(prompter), teams.WithHistoryStore(store, f.sessionID))
	}
	for _, m := range members {
		var mopts []agent.AgentOption
		persona := m.Persona
		if persona == "" {
			persona = settings.SystemPrompt
		}
		if persona != "" {
			mopts = append(mopts, agent.WithSystemPrompt(persona))
		}
		if m.Model != "" {
			mopts = append(mopts, agent.WithModel(anthropic.Model(m.Model)))
		}
		opts = append(opts, teams.WithMember(m.Name, mopts...))
	}

	team, err := teams.New(ctx, "ask-others", opts...)
	if err != nil {
		return err
	}
	defer team.Close()

	out := cmd.OutOrStdout()
	header := color.New(color.Bold)
	header.Fprintf(out, "%d agents, broadcast %s\n", len(members), cfg.Mode)

	stream := team.Run(ctx, task)
	for stream.Next() {
		printEvent(out, stream.Current())
	}
	results := stream.Drain()
	printResults(out, results)
	return ctx.Err()
}

func applyFlags(cmd *cobra.Command, s *config.Settings, f runFlags) error {
	if cmd.Flags().Changed("broadcast") {
		mode, err := broadcast.ParseMode(f.mode)
		if err != nil {
			return err
		}
		s.Broadcast = &config.BroadcastMode{Mode: mode}
	}
	if cmd.Flags().Changed("timeout") {
		secs := f.timeout.Seconds()
		s.BroadcastTimeout = &secs
	}
	if f.model != "" {
		s.Model = f.model
	}
	if f.qaStore != "" {
		s.QAStore = f.qaStore
	}
	return nil
}

func teamMembers(s *config.Settings, f runFlags) ([]config.AgentSettings, error) {
	switch {
	case f.personas != "":
		members, err := config.LoadPersonas(f.personas)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, fmt.Errorf("no persona files in %s", f.personas)
		}
		return members, nil
	case len(f.agents) > 0:
		members := make([]config.AgentSettings, len(f.agents))
		for i, name := range f.agents {
			members[i] = config.AgentSettings{Name: name}
		}
		return members, nil
	case len(s.Agents) > 0:
		return s.Agents, nil
	}
	members := make([]config.AgentSettings, len(defaultAgents))
	for i, name := range defaultAgents {
		members[i] = config.AgentSettings{Name: name}
	}
	return members, nil
}

func humanChannel(cmd *cobra.Command, name string) (broadcast.Prompter, error) {
	switch name {
	case "auto", "":
		return human.Auto(), nil
	case "terminal":
		return human.NewTerminal(cmd.InOrStdin(), cmd.OutOrStdout()), nil
	case "line":
		return human.NewLine(cmd.InOrStdin(), cmd.OutOrStdout()), nil
	}
	return nil, errors.New("unknown human channel " + name)
}

var memberColors = []color.Attribute{color.FgCyan, color.FgMagenta, color.FgGreen, color.FgYellow, color.FgBlue}

func memberColor(name string) *color.Color {
	var h int
	for _, r := range name {
		h += int(r)
	}
	return color.New(memberColors[h%len(memberColors)])
}

func printEvent(out io.Writer, ev *teams.Event) {
	tag := memberColor(ev.MemberName).Sprintf("[%s]", ev.MemberName)
	switch e := ev.AgentEvent.(type) {
	case *agent.ToolEvent:
		if e.Name != broadcast.ToolName {
			fmt.Fprintf(out, "%s %s\n", tag, e.Name)
			return
		}
		if e.IsError {
			fmt.Fprintf(out, "%s ask_others failed: %s\n", tag, e.Output)
			return
		}
		fmt.Fprintf(out, "%s ask_others → %s\n", tag, e.Output)
	case *agent.ResultEvent:
		if e.IsError {
			color.New(color.FgRed).Fprintf(out, "%s failed: %s\n", tag, strings.Join(e.Errors, "; "))
		}
	}
}

func printResults(out io.Writer, results map[string]*agent.ResultEvent) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := results[name]
		fmt.Fprintln(out)
		memberColor(name).Add(color.Bold).Fprintf(out, "== %s (%d turns)\n", name, r.NumTurns)
		fmt.Fprintln(out, r.Result)
	}
}
