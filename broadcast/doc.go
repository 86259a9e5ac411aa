// Package broadcast implements ask_others: the primitive that lets one agent
// put a question to its peers, or to a single human operator, without
// stopping anybody's work.
//
// A [Coordinator] is the entry point. It admits requests through a per-agent
// rate-limited [Registry], then either fans the question out to one
// [ShadowResponder] per peer (agents mode) or hands it to the [HumanGate]
// (human mode). Shadows answer from a copy of their parent's context and never
// touch the live agent; the coordinator afterwards drops a short notice into
// each responding agent's history. The human gate serializes the operator's
// attention and reuses earlier answers so the human is asked at most once per
// session.
//
// Every failure is folded into a terminal [Status] or a single tool error;
// nothing propagates into the requesting agent's loop.
package broadcast
