// Package prof wires pprof and the runtime tracer behind the profiling flags.
package prof

import (
	"errors"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"

	"calm/internal/fault"
)

// Paths selects the profiles to record. Empty paths are skipped.
type Paths struct {
	CPU   string
	Mem   string
	Trace string
}

// Session is a running set of profilers.
type Session struct {
	paths     Paths
	cpuFile   *os.File
	traceFile *os.File
	stopped   bool
}

// Start opens every requested profile. On failure the ones already running
// are stopped.
func Start(paths Paths) (*Session, error) {
	s := &Session{paths: paths}
	if paths.CPU != "" {
		f, err := os.Create(paths.CPU)
		if err != nil {
			return nil, fault.IO(err, "cannot create cpu profile")
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fault.IO(err, "cannot start cpu profile")
		}
		s.cpuFile = f
	}
	if paths.Trace != "" {
		f, err := os.Create(paths.Trace)
		if err != nil {
			s.stopCPU()
			return nil, fault.IO(err, "cannot create runtime trace")
		}
		if err := rtrace.Start(f); err != nil {
			_ = f.Close()
			s.stopCPU()
			return nil, fault.IO(err, "cannot start runtime trace")
		}
		s.traceFile = f
	}
	return s, nil
}

func (s *Session) stopCPU() {
	if s.cpuFile == nil {
		return
	}
	pprof.StopCPUProfile()
	_ = s.cpuFile.Close()
	s.cpuFile = nil
}

// Stop ends the profiles and writes the heap profile. It may be called more
// than once.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	var errs []error
	if s.traceFile != nil {
		rtrace.Stop()
		errs = append(errs, s.traceFile.Close())
		s.traceFile = nil
	}
	s.stopCPU()
	if s.paths.Mem != "" {
		errs = append(errs, writeHeap(s.paths.Mem))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fault.IO(err, "cannot create heap profile")
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fault.IO(closeErr, "cannot close heap profile")
		}
	}()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fault.IO(err, "cannot write heap profile")
	}
	return nil
}
