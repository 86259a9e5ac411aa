// Package agent is the runtime for a set of parallel problem-solving agents
// that can consult each other while they work.
//
// It provides three building blocks:
//
//   - [Agent] holds identity (name, persona), model settings, a [Backend] and
//     a [ToolRegistry]. It is stateless and safe to share.
//   - [Session] is a concurrency-safe conversation history with copy-on-read
//     snapshots and out-of-band notice injection.
//   - [Client] pairs an Agent with a Session and tracks in-progress output.
//
// # Quick Start
//
//	backend := agent.NewAnthropicBackend()
//	c := agent.NewClient(agent.WithName("alice"), agent.WithBackend(backend))
//	stream := c.Query(ctx, "Design the login flow.")
//	for stream.Next() {
//	    if e, ok := stream.Current().(*agent.StreamEvent); ok {
//	        fmt.Print(e.Delta)
//	    }
//	}
//
// # Sub-packages
//
//   - [broadcast] implements the ask_others coordination primitive.
//   - [teams] runs several agents on one task with broadcast wired in.
//   - [human] provides interactive channels for the human operator.
//   - [qastore] persists the human Q&A log.
package agent
