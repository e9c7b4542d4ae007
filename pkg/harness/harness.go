/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: harness.go
Description: Entry-point convention shared by every fuzzing harness. A Harness wraps one
Target, builds the FIXREVERTER probe table once per process on instrumented builds, and
exposes the TestOneInput function called by the fuzzing engine or the replay driver.
*/

package harness

import (
	"io"
	"os"
	"sync"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
)

// Target adapts one library entry point to a raw byte buffer.
type Target interface {
	// Name is the harness name, also used as the binary name.
	Name() string
	// Probes is the number of FIXREVERTER probe slots the target declares.
	Probes() int
	// Run converts data into the target's argument shapes and invokes it.
	// Run must release every resource it acquires before returning.
	Run(data []byte, env *Env) Result
}

// Env is handed to a Target for one invocation.
type Env struct {
	Probes    *gate.Table
	Resources *Tracker
}

// Option configures a Harness.
type Option func(*Harness)

// WithProbes installs a pre-built probe table instead of loading one from the
// environment.
func WithProbes(t *gate.Table) Option {
	return func(h *Harness) {
		h.probes = t
		h.loaded = true
	}
}

// WithTracker makes every invocation report resource use to tr.
func WithTracker(tr *Tracker) Option {
	return func(h *Harness) { h.tracker = tr }
}

// WithLoader overrides how the probe table is loaded on instrumented builds.
func WithLoader(getenv func(string) string, stderr io.Writer, exit func(int)) Option {
	return func(h *Harness) {
		h.getenv = getenv
		h.stderr = stderr
		h.exit = exit
	}
}

// Harness is the per-process wrapper around a Target.
type Harness struct {
	target  Target
	tracker *Tracker

	once    sync.Once
	loaded  bool
	aborted bool
	probes  *gate.Table

	getenv func(string) string
	stderr io.Writer
	exit   func(int)
}

// New creates a harness for target.
func New(target Target, opts ...Option) *Harness {
	h := &Harness{
		target: target,
		getenv: os.Getenv,
		stderr: os.Stderr,
		exit:   os.Exit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the wrapped target's name.
func (h *Harness) Name() string { return h.target.Name() }

// Probes returns the probe table, loading it on first use.
func (h *Harness) Probes() *gate.Table {
	h.once.Do(h.load)
	return h.probes
}

func (h *Harness) load() {
	if h.loaded || !gate.Instrumented {
		return
	}
	h.probes = gate.Load(h.target.Probes(), h.getenv, h.stderr, h.exit)
	// Load only returns nil after reporting a usage error and calling exit.
	h.aborted = h.probes == nil
}

// Exec runs one input and returns the target's outcome. After a probe
// selection usage error the target is never run.
func (h *Harness) Exec(data []byte) Result {
	probes := h.Probes()
	if h.aborted {
		return Reject(StageProbes, gate.ErrUsage)
	}
	env := &Env{Probes: probes, Resources: h.tracker}
	return h.target.Run(data, env)
}

// TestOneInput is the fuzzing entry point. The outcome is discarded and the
// return value is always 0.
func (h *Harness) TestOneInput(data []byte) int {
	h.Exec(data)
	return 0
}
