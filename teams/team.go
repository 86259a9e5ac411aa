package teams

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	agent "github.com/armatrix/agent-broadcast-go"
	"github.com/armatrix/agent-broadcast-go/broadcast"
)

// Sentinel errors for the teams package.
var (
	ErrNoMembers       = errors.New("teams: team has no members")
	ErrDuplicateMember = errors.New("teams: duplicate member name")
	ErrMemberNotFound  = errors.New("teams: member not found")
	ErrNoPrompter      = errors.New("teams: human broadcast requires a prompter")
)

// Team is a set of agents working on the same task in parallel. It is the
// broadcast directory for its members and owns the session's coordinator.
type Team struct {
	id          string
	name        string
	members     map[string]*Member
	order       []string
	coordinator *broadcast.Coordinator
	logger      *slog.Logger
	opts        teamOptions
	mu          sync.RWMutex
}

var _ broadcast.Directory = (*Team)(nil)

// Option configures a Team.
type Option func(*teamOptions)

type teamOptions struct {
	memberDefs   []memberDef
	sharedOpts   []agent.AgentOption
	broadcast    broadcast.Config
	prompter     broadcast.Prompter
	store        broadcast.HistoryStore
	sessionID    string
	logger       *slog.Logger
	streamBuffer int
}

type memberDef struct {
	name string
	opts []agent.AgentOption
}

// WithMember adds a named teammate with the given agent options.
func WithMember(name string, opts ...agent.AgentOption) Option {
	return func(o *teamOptions) {
		o.memberDefs = append(o.memberDefs, memberDef{name: name, opts: opts})
	}
}

// WithAgentOptions applies opts to every member before its own options.
func WithAgentOptions(opts ...agent.AgentOption) Option {
	return func(o *teamOptions) { o.sharedOpts = append(o.sharedOpts, opts...) }
}

// WithBroadcast enables ask_others for every member.
func WithBroadcast(cfg broadcast.Config) Option {
	return func(o *teamOptions) { o.broadcast = cfg }
}

// WithPrompter sets the human channel for human-mode broadcasts.
func WithPrompter(p broadcast.Prompter) Option {
	return func(o *teamOptions) { o.prompter = p }
}

// WithHistoryStore persists human answers under sessionID. Previously stored
// answers are loaded when the team is created.
func WithHistoryStore(store broadcast.HistoryStore, sessionID string) Option {
	return func(o *teamOptions) {
		o.store = store
		o.sessionID = sessionID
	}
}

// WithLogger sets the logger for the team and its coordinator.
func WithLogger(l *slog.Logger) Option {
	return func(o *teamOptions) { o.logger = l }
}

// WithStreamBuffer sets the aggregated stream's channel size.
func WithStreamBuffer(n int) Option {
	return func(o *teamOptions) { o.streamBuffer = n }
}

// New creates a Team with the given name and options.
func New(ctx context.Context, name string, opts ...Option) (*Team, error) {
	o := teamOptions{
		broadcast:    broadcast.DefaultConfig(),
		logger:       slog.Default(),
		streamBuffer: agent.DefaultStreamBufferSize,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if len(o.memberDefs) == 0 {
		return nil, ErrNoMembers
	}

	t := &Team{
		id:      agent.GenerateID(agent.PrefixTeam),
		name:    name,
		members: make(map[string]*Member),
		opts:    o,
	}
	t.logger = o.logger.With("component", "team", "team", name, "team_id", t.id)
	if o.sessionID == "" {
		t.opts.sessionID = t.id
	}

	for _, def := range o.memberDefs {
		if _, dup := t.members[def.name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, def.name)
		}
		agentOpts := make([]agent.AgentOption, 0, len(o.sharedOpts)+len(def.opts)+2)
		agentOpts = append(agentOpts, agent.WithLogger(o.logger))
		agentOpts = append(agentOpts, o.sharedOpts...)
		agentOpts = append(agentOpts, def.opts...)
		agentOpts = append(agentOpts, agent.WithName(def.name))
		t.members[def.name] = NewMember(def.name, agent.NewClient(agentOpts...))
		t.order = append(t.order, def.name)
	}

	if err := t.setupBroadcast(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Team) setupBroadcast(ctx context.Context) error {
	cfg := t.opts.broadcast
	if !cfg.Enabled() {
		return nil
	}

	copts := []broadcast.Option{broadcast.WithLogger(t.opts.logger)}
	switch cfg.Mode {
	case broadcast.ModeAgents:
		copts = append(copts, broadcast.WithDirectory(t))
	case broadcast.ModeHuman:
		if t.opts.prompter == nil {
			return ErrNoPrompter
		}
		var gopts []broadcast.GateOption
		gopts = append(gopts, broadcast.WithGateLogger(t.opts.logger))
		if t.opts.store != nil {
			gopts = append(gopts, broadcast.WithHistoryStore(t.opts.store, t.opts.sessionID))
		}
		gate := broadcast.NewHumanGate(t.opts.prompter, gopts...)
		if err := gate.Load(ctx); err != nil {
			return fmt.Errorf("teams: load human answers: %w", err)
		}
		copts = append(copts, broadcast.WithHumanGate(gate))
	}

	coord, err := broadcast.NewCoordinator(cfg, copts...)
	if err != nil {
		return err
	}
	t.coordinator = coord
	for _, name := range t.order {
		broadcast.RegisterTool(t.members[name].Client().Agent().Tools(), coord, name)
	}
	t.logger.Info("broadcast enabled", "mode", cfg.Mode.String(), "members", len(t.order))
	return nil
}

// Peers implements broadcast.Directory: every member other than requesterID
// that has not been shut down.
func (t *Team) Peers(requesterID string) []broadcast.Peer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	peers := make([]broadcast.Peer, 0, len(t.order))
	for _, name := range t.order {
		m := t.members[name]
		if name == requesterID || m.Status() == MemberShutdown {
			continue
		}
		peers = append(peers, m)
	}
	return peers
}

// Run sends prompt to every active member in parallel. The returned stream
// closes when all members have finished.
func (t *Team) Run(ctx context.Context, prompt string) *Stream {
	s := newStream(t.opts.streamBuffer)
	members := t.Members()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	for _, m := range members {
		if m.Status() == MemberShutdown {
			continue
		}
		g.Go(func() error {
			res := m.Run(ctx, prompt, s.events)
			if res != nil {
				mu.Lock()
				s.results[m.Name()] = res
				mu.Unlock()
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(s.events)
		close(s.closed)
	}()
	t.logger.Info("team run started", "members", len(members))
	return s
}

// Member returns the member with the given name.
func (t *Team) Member(name string) (*Member, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.members[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, name)
	}
	return m, nil
}

// Members returns the members in declaration order.
func (t *Team) Members() []*Member {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Member, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.members[name])
	}
	return out
}

// StopMember shuts down one member. It stops answering broadcasts.
func (t *Team) StopMember(name string) error {
	m, err := t.Member(name)
	if err != nil {
		return err
	}
	m.Stop()
	return nil
}

// Shutdown stops every member.
func (t *Team) Shutdown() {
	for _, m := range t.Members() {
		m.Stop()
	}
}

// Close ends the coordination session: members are stopped, pending notices
// are delivered and the broadcast registry is reset.
func (t *Team) Close() {
	t.Shutdown()
	if t.coordinator != nil {
		t.coordinator.Close()
	}
}

// Coordinator returns the broadcast coordinator, or nil when disabled.
func (t *Team) Coordinator() *broadcast.Coordinator { return t.coordinator }

// ID returns the team's unique identifier.
func (t *Team) ID() string { return t.id }

// Name returns the team's name.
func (t *Team) Name() string { return t.name }

// SessionID is the key under which human answers are persisted.
func (t *Team) SessionID() string { return t.opts.sessionID }
