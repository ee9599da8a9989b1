// Package trace records what the engine does while it runs tools.
//
// Events are grouped by scope (driver, tool, step, process) and the level
// decides how deep tracing goes. Two storage modes exist: stream writes each
// event immediately, ring keeps the last N events in memory and is dumped
// only when a command fails. A heartbeat can be started to tell a hung child
// apart from a slow one.
//
//	tr, _ := trace.New(trace.Config{Level: trace.LevelStep, Mode: trace.ModeStream})
//	ctx = trace.WithTracer(ctx, tr)
//	span := trace.Begin(tr, trace.ScopeTool, "tool:ruff", 0)
//	defer span.End("")
package trace
