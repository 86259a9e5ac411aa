package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Coordinator runs ask_others for one coordination session.
type Coordinator struct {
	cfg       Config
	registry  *Registry
	directory Directory
	human     *HumanGate
	workflow  *toolMatcher
	logger    *slog.Logger
	now       func() time.Time

	notices sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDirectory sets the peer source for agents mode.
func WithDirectory(d Directory) Option {
	return func(c *Coordinator) { c.directory = d }
}

// WithHumanGate sets the gate for human mode.
func WithHumanGate(g *HumanGate) Option {
	return func(c *Coordinator) { c.human = g }
}

// WithRegistry shares an existing registry.
func WithRegistry(r *Registry) Option {
	return func(c *Coordinator) { c.registry = r }
}

// WithLogger sets the coordinator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithClock overrides time.Now for registry timestamps and notices.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator validates cfg and builds a coordinator.
func NewCoordinator(cfg Config, opts ...Option) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Coordinator{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	switch cfg.Mode {
	case ModeAgents:
		if c.directory == nil {
			return nil, ErrNoDirectory
		}
	case ModeHuman:
		if c.human == nil {
			return nil, ErrNoHumanGate
		}
	}

	m, err := newToolMatcher(cfg.WorkflowTools)
	if err != nil {
		return nil, err
	}
	c.workflow = m
	if c.registry == nil {
		c.registry = NewRegistry(cfg.MaxPerAgent)
		c.registry.now = c.now
	}
	c.logger = c.logger.With("component", "broadcast", "mode", cfg.Mode.String())
	return c, nil
}

// Config returns the resolved configuration.
func (c *Coordinator) Config() Config { return c.cfg }

// Registry returns the session registry.
func (c *Coordinator) Registry() *Registry { return c.registry }

// HumanGate returns the gate, or nil outside human mode.
func (c *Coordinator) HumanGate() *HumanGate { return c.human }

// AskOthers runs one broadcast for requesterID and blocks until it reaches a
// terminal status. Only admission failures are returned as errors.
func (c *Coordinator) AskOthers(ctx context.Context, requesterID, question string) (*Result, error) {
	if !c.cfg.Enabled() {
		return nil, ErrBroadcastDisabled
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	req, err := c.registry.Register(requesterID, question, c.cfg.Mode, c.cfg.Timeout)
	if err != nil {
		c.logger.Warn("broadcast rejected", "requester", requesterID, "error", err)
		return nil, err
	}
	log := c.logger.With("request_id", req.ID, "requester", requesterID)
	log.Info("broadcast started", "timeout", c.cfg.Timeout)

	var (
		out   Outcome
		peers map[string]Peer
	)
	if c.cfg.Timeout <= 0 {
		out = Outcome{Status: StatusTimedOut}
	} else {
		runCtx, cancel := context.WithDeadline(ctx, req.TimeoutAt)
		switch c.cfg.Mode {
		case ModeAgents:
			out, peers = c.fanOut(runCtx, req, log)
		case ModeHuman:
			_ = c.registry.MarkFannedOut(req.ID)
			out = c.human.Respond(runCtx, questionFor(req))
		}
		cancel()
	}

	final, err := c.registry.Complete(req.ID, out.Status)
	if err != nil {
		return nil, fmt.Errorf("complete broadcast: %w", err)
	}
	log.Info("broadcast finished", "status", final.Status, "responses", len(out.Responses))

	for _, resp := range out.Responses {
		if p, ok := peers[resp.ResponderID]; ok {
			c.deliver(p, newNotice(final, resp), log)
		}
	}
	return newResult(final, out), nil
}

// fanOut asks one shadow per peer and collects answers until all finish or
// ctx ends. It returns the peers that were asked, keyed by id.
func (c *Coordinator) fanOut(ctx context.Context, req Request, log *slog.Logger) (Outcome, map[string]Peer) {
	peers := make(map[string]Peer)
	var shadows []*ShadowResponder
	for _, p := range c.directory.Peers(req.RequesterID) {
		id := p.ID()
		if id == req.RequesterID || peers[id] != nil {
			continue
		}
		peers[id] = p
		shadows = append(shadows, newShadow(p.Snapshot(), c.workflow, c.cfg.ShadowMaxTokens, log, c.now))
	}
	_ = c.registry.MarkFannedOut(req.ID)
	log.Debug("fanning out", "shadows", len(shadows))
	if len(shadows) == 0 {
		return Outcome{Status: StatusTimedOut}, peers
	}

	q := questionFor(req)
	coll := &collector{}
	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.MaxConcurrentShadows > 0 {
		g.SetLimit(c.cfg.MaxConcurrentShadows)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range shadows {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				out := s.Respond(gctx, q)
				if out.Err != nil {
					log.Warn("shadow produced no answer", "responder", s.ID(), "error", out.Err)
					return nil
				}
				if !coll.add(out.Responses...) {
					log.Debug("dropping late shadow answer", "responder", s.ID())
				}
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	responses := coll.close()
	if len(responses) == 0 {
		return Outcome{Status: StatusTimedOut}, peers
	}
	return Outcome{Status: StatusComplete, Responses: responses}, peers
}

func (c *Coordinator) deliver(p Peer, n Notice, log *slog.Logger) {
	c.notices.Add(1)
	go func() {
		defer c.notices.Done()
		p.Notify(n)
		log.Debug("notice delivered", "responder", n.ResponderID, "notice_id", n.ID)
	}()
}

// Wait blocks until every in-flight notice delivery has finished.
func (c *Coordinator) Wait() { c.notices.Wait() }

// Close waits for notices and resets the registry. Call at session end.
func (c *Coordinator) Close() {
	c.Wait()
	c.registry.Reset()
}

// collector accepts responses until it is closed.
type collector struct {
	mu        sync.Mutex
	closed    bool
	responses []Response
}

func (c *collector) add(rs ...Response) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.responses = append(c.responses, rs...)
	return true
}

func (c *collector) close() []Response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return append([]Response(nil), c.responses...)
}
