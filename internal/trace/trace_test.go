package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	for _, l := range []Level{LevelOff, LevelError, LevelTool, LevelStep, LevelDebug} {
		got, err := ParseLevel(strings.ToUpper(l.String()))
		if err != nil || got != l {
			t.Errorf("ParseLevel(%q) = %v, %v", l.String(), got, err)
		}
	}
	if _, err := ParseLevel("phase"); err == nil {
		t.Error("phase is not a calm level")
	}
}

func TestShouldEmit(t *testing.T) {
	if LevelTool.ShouldEmit(ScopeStep) {
		t.Error("tool level must not emit steps")
	}
	if !LevelStep.ShouldEmit(ScopeStep) || LevelStep.ShouldEmit(ScopeProcess) {
		t.Error("step level boundary wrong")
	}
	if !LevelDebug.ShouldEmit(ScopeProcess) {
		t.Error("debug emits everything")
	}
}

func TestStreamTracerSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelStep, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, tool := Start(ctx, ScopeTool, "tool:ruff")
	_, step := Start(ctx, ScopeStep, "step:Running ruff")
	step.WithExtra("exit", "0").End("ok")
	tool.End("")

	_, proc := Start(ctx, ScopeProcess, "spawn")
	proc.End("")

	out := buf.String()
	for _, want := range []string{"\u2192 tool:ruff", "\u2192 step:Running ruff", "\u2190 step:Running ruff (ok) {exit=0}", "\u2190 tool:ruff"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "spawn") {
		t.Error("process scope leaked at step level")
	}
}

func TestRingWrapsAndDumps(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		r.Emit(&Event{Kind: KindPoint, Scope: ScopeStep, Name: name})
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("snapshot = %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Errorf("dump = %q", buf.String())
	}
}

func TestMultiFindsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelStep, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	Begin(tr, ScopeTool, "x", 0).End("")
	ring, ok := Ring(tr)
	if !ok {
		t.Fatal("ring not found")
	}
	if len(ring.Snapshot()) != 2 || buf.Len() == 0 {
		t.Errorf("events not fanned out: ring=%d stream=%d", len(ring.Snapshot()), buf.Len())
	}
}

func TestNopWhenOff(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatal("off tracer enabled")
	}
	if Begin(tr, ScopeDriver, "x", 0).ID() != 0 {
		t.Error("disabled span must have id 0")
	}
}

func TestHeartbeatStops(t *testing.T) {
	r := NewRingTracer(16, LevelTool)
	h := StartHeartbeat(r, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	h.Stop()
	h.Stop()
	n := len(r.Snapshot())
	if n == 0 {
		t.Fatal("no heartbeats recorded")
	}
	time.Sleep(5 * time.Millisecond)
	if len(r.Snapshot()) != n {
		t.Error("heartbeat kept running after Stop")
	}
	if StartHeartbeat(Nop, time.Second) != nil {
		t.Error("heartbeat on a disabled tracer must be nil")
	}
}
