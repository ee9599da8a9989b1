package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// LogSink prints `> step` lines as steps start and reports failed tools.
// Status lines are dropped; they only make sense in a live display.
type LogSink struct {
	mu     sync.Mutex
	w      io.Writer
	marker *color.Color
}

// NewLogSink writes to w, coloring the marker when colored is set.
func NewLogSink(w io.Writer, colored bool) *LogSink {
	marker := color.New(color.Bold, color.Faint)
	if colored {
		marker.EnableColor()
	} else {
		marker.DisableColor()
	}
	return &LogSink{w: w, marker: marker}
}

func (s *LogSink) OnEvent(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch evt.Status {
	case StatusStarted:
		if evt.Step != "" {
			fmt.Fprintf(s.w, "%s %s\n", s.marker.Sprint(">"), evt.Step)
		}
	case StatusError:
		if evt.Step == "" && evt.Err != nil {
			fmt.Fprintf(s.w, "%s %s failed: %v\n", s.marker.Sprint(">"), evt.Tool, evt.Err)
		}
	}
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) OnEvent(evt Event) {
	for _, s := range m {
		s.OnEvent(evt)
	}
}
