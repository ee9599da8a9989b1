package tool

import (
	"strings"

	"calm/internal/config"
	"calm/internal/diag"
	"calm/internal/runner"
)

const (
	statusLinting      = "Linting ..."
	statusGeneralIssue = "Found new general issue"
)

// handlers wires the stream actions of step to report. Installing any
// handler turns a non-zero exit into an ordinary failed step.
func (t *Tool) handlers(step *config.Step, report *diag.Report) runner.Handlers {
	h := runner.DefaultHandlers()
	if report == nil {
		return h
	}
	if fn := t.streamHandler(step.Stdout, report); fn != nil {
		h.OnStdout = fn
		h.Expect = false
	}
	if fn := t.streamHandler(step.Stderr, report); fn != nil {
		h.OnStderr = fn
		h.Expect = false
	}
	return h
}

// streamHandler picks the decoder for one stream; JSON wins over line
// patterns when both are configured.
func (t *Tool) streamHandler(a *config.StreamActions, report *diag.Report) runner.LineHandler {
	switch {
	case a == nil:
		return nil
	case a.ParseLintJSON:
		return t.jsonHandler(report)
	case a.ParseLines != nil:
		return t.linesHandler(a.ParseLines, report)
	}
	return nil
}

func (t *Tool) linesHandler(pl *config.ParseLines, report *diag.Report) runner.LineHandler {
	p := pl.Pattern
	return func(line string) (string, error) {
		caps, ok := p.MatchLine(line)
		if !ok || pl.ReportMatch != config.ReportLintResult {
			return statusLinting, nil
		}
		return t.addCaptures(caps, report)
	}
}

func (t *Tool) addCaptures(caps map[string]string, report *diag.Report) (string, error) {
	d, err := diag.FromCaptures(caps)
	if err != nil {
		return "", err
	}
	if err := report.Add(t.id, d); err != nil {
		return "", err
	}
	if d.IsGeneral() {
		return statusGeneralIssue, nil
	}
	return "Found issue in " + d.Filename, nil
}

// jsonHandler decodes one diagnostic per line. Blank lines are skipped.
func (t *Tool) jsonHandler(report *diag.Report) runner.LineHandler {
	return func(line string) (string, error) {
		if strings.TrimSpace(line) == "" {
			return "", nil
		}
		d, err := diag.DecodeRecord(line)
		if err != nil {
			return "", err
		}
		return "", report.Add(t.id, d)
	}
}
