package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"calm/internal/fault"
	"calm/internal/progress"
	"calm/internal/trace"
)

// LineHandler consumes one line of output and returns the status text to
// show for it. An empty status leaves the display unchanged.
type LineHandler func(line string) (string, error)

// Handlers configures how Wait treats the two output streams.
type Handlers struct {
	OnStdout LineHandler
	OnStderr LineHandler
	// Expect turns a non-zero exit into an execution error.
	Expect bool
}

// DefaultHandlers shows raw lines and requires success.
func DefaultHandlers() Handlers { return Handlers{Expect: true} }

// Process is a running child.
type Process struct {
	cmd    *exec.Cmd
	name   string
	stdout io.ReadCloser
	stderr io.ReadCloser
	sink   progress.Sink
	tool   string
	step   string
	span   *trace.Span
}

// Wait drains stdout and stderr concurrently until both reach EOF, then
// waits for the child. It returns whether the child exited zero.
//
// A handler error is returned only after the child has exited; the failing
// stream keeps being read so the child never blocks on a full pipe.
func (p *Process) Wait(h Handlers) (bool, error) {
	var g errgroup.Group
	g.Go(func() error { return p.drain(p.stdout, h.OnStdout) })
	g.Go(func() error { return p.drain(p.stderr, h.OnStderr) })
	drainErr := g.Wait()

	waitErr := p.cmd.Wait()
	success := waitErr == nil
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		p.span.EndErr(waitErr)
		return false, fault.IO(waitErr, "waiting for %s", p.name)
	}
	status := p.cmd.ProcessState.String()
	p.span.WithExtra("status", status)

	if drainErr != nil {
		p.span.EndErr(drainErr)
		return false, drainErr
	}
	if h.Expect && !success {
		err := fault.Executionf("`%s` failed with %s", p.name, status)
		p.span.EndErr(err)
		return false, err
	}
	p.span.End(status)
	return success, nil
}

func (p *Process) drain(r io.Reader, handler LineHandler) error {
	br := bufio.NewReader(r)
	var handlerErr error
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if handlerErr == nil {
				handlerErr = p.handle(line, handler)
			}
		}
		if errors.Is(err, io.EOF) {
			return handlerErr
		}
		if err != nil {
			if handlerErr != nil {
				return handlerErr
			}
			return fault.IO(err, "reading output of %s", p.name)
		}
	}
}

func (p *Process) handle(line string, handler LineHandler) error {
	status := strings.TrimSpace(line)
	if handler != nil {
		var err error
		status, err = handler(line)
		if err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	if status != "" {
		p.sink.OnEvent(progress.Event{
			Tool:    p.tool,
			Step:    p.step,
			Status:  progress.StatusWorking,
			Message: p.name + ": " + status,
		})
	}
	return nil
}
