// Package human provides the channels through which the human operator
// answers ask_others in human mode: a full-screen terminal prompt, a plain
// line prompt for pipes and logs, and a callback adapter.
package human
