/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: Process executor for triage runs. Starts a harness binary with a given
environment and working directory, enforces a wall-clock timeout, and reports exit code,
terminating signal and combined output.
*/

package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// TimeoutExitCode is reported for runs killed by the timeout, matching
// coreutils timeout(1).
const TimeoutExitCode = 124

// Request describes one process run.
type Request struct {
	Args []string // Args[0] is the binary
	Env  []string
	Dir  string
}

// Result is the outcome of one run.
type Result struct {
	ExitCode int
	Signal   int
	TimedOut bool
	Output   []byte
	Duration time.Duration
}

// Crashed reports whether the run ended abnormally.
func (r *Result) Crashed() bool {
	return r.ExitCode != 0 || r.Signal != 0 || r.TimedOut
}

// Executor runs processes.
type Executor interface {
	Execute(ctx context.Context, req Request) (*Result, error)
}

// ProcessExecutor runs real processes.
type ProcessExecutor struct {
	Timeout time.Duration
}

// NewProcessExecutor creates a new process executor instance
func NewProcessExecutor(timeout time.Duration) *ProcessExecutor {
	return &ProcessExecutor{Timeout: timeout}
}

// Execute runs the request. A non-zero exit is not an error; only failing to
// start the process is.
func (e *ProcessExecutor) Execute(ctx context.Context, req Request) (*Result, error) {
	if len(req.Args) == 0 {
		return nil, errors.New("execution: empty command")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, req.Args[0], req.Args[1:]...)
	cmd.Env = req.Env
	cmd.Dir = req.Dir
	cmd.Stdout = &output
	cmd.Stderr = &output
	// Own process group so the whole tree can be killed on timeout.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", req.Args[0], err)
	}
	track(cmd.Process)
	defer untrack(cmd.Process)

	waitErr := cmd.Wait()
	result := &Result{Output: output.Bytes(), Duration: time.Since(start)}

	if ctx.Err() != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.TimedOut = true
		result.ExitCode = TimeoutExitCode
		return result, nil
	}
	if cmd.ProcessState == nil {
		return nil, fmt.Errorf("process error: %w", waitErr)
	}
	result.ExitCode = cmd.ProcessState.ExitCode()
	if status, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		result.Signal = int(status.Signal())
	}
	return result, nil
}

var (
	childProcs   = make(map[int]*os.Process)
	childProcsMu sync.Mutex
)

func track(p *os.Process) {
	childProcsMu.Lock()
	childProcs[p.Pid] = p
	childProcsMu.Unlock()
}

func untrack(p *os.Process) {
	childProcsMu.Lock()
	delete(childProcs, p.Pid)
	childProcsMu.Unlock()
}

// Cleanup kills every process still running.
func Cleanup() {
	childProcsMu.Lock()
	defer childProcsMu.Unlock()
	for pid, p := range childProcs {
		syscall.Kill(-pid, syscall.SIGKILL)
		p.Kill()
	}
	clear(childProcs)
}
