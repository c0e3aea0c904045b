// Package statemachine provides a small transition-table state machine.
//
// Unlike stateful machines that track a current state internally, the table
// here is stateless: callers hold the state (typically a column on a stored
// record) and ask the machine whether an event may move it, or which state it
// lands in. This fits persisted lifecycles where the authoritative state
// lives in the database row, not in process memory.
//
//	m := statemachine.New()
//	m.AddTransition("draft", "active", "activate")
//	m.AddTransition("active", "inactive", "deactivate")
//	m.AddTransition("inactive", "active", "activate")
//
//	next, err := m.Next(ctx, "draft", "activate", nil) // "active"
package statemachine
