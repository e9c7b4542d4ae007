/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: gate.go
Description: FIXREVERTER instrumentation gate. Parses the probe selection carried in the
FIXREVERTER environment variable into an immutable probe table, and provides the guard
used at probe sites to decide whether an injected bug is live for this process.
*/

package gate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// EnvVar is the environment variable carrying the probe selection.
const EnvVar = "FIXREVERTER"

// ErrUsage is returned when the first token is neither "on" nor "off".
var ErrUsage = errors.New("first token must be on or off")

// Mode is the leading token of a probe selection.
type Mode string

const (
	ModeOn  Mode = "on"  // all probes disabled, listed ids enabled
	ModeOff Mode = "off" // all probes enabled, listed ids disabled
)

// Table is the process-wide probe table. It is built once by Parse or Load and
// never written afterwards. A nil *Table is valid and means "not instrumented".
type Table struct {
	slots []bool
	log   io.Writer
}

// Parse builds a table of the given size from an environment value.
//
// An empty value enables every slot. "on 3 7" disables everything and then
// enables 3 and 7; "off 3 7" enables everything and then disables 3 and 7.
// Id tokens that are not integers, or fall outside the table, are ignored.
func Parse(value string, size int) (*Table, error) {
	if size < 0 {
		size = 0
	}
	t := &Table{slots: make([]bool, size), log: os.Stderr}

	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		t.fill(true)
		return t, nil
	}

	var mark bool
	switch Mode(tokens[0]) {
	case ModeOn:
		t.fill(false)
		mark = true
	case ModeOff:
		t.fill(true)
		mark = false
	default:
		return nil, fmt.Errorf("%w: got %q", ErrUsage, tokens[0])
	}

	for _, tok := range tokens[1:] {
		id, err := strconv.Atoi(tok)
		if err != nil || id < 0 || id >= size {
			continue
		}
		t.slots[id] = mark
	}
	return t, nil
}

// Load performs the process-start initialization: it reads EnvVar through
// getenv and parses it. On a usage error it reports to stderr and calls exit
// with status 0, so a misconfigured run is skipped rather than recorded as a
// target crash.
func Load(size int, getenv func(string) string, stderr io.Writer, exit func(int)) *Table {
	if getenv == nil {
		getenv = os.Getenv
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if exit == nil {
		exit = os.Exit
	}

	t, err := Parse(getenv(EnvVar), size)
	if err != nil {
		fmt.Fprintf(stderr, "[FIXREVERTER] - first token must be on or off\n")
		exit(0)
		return nil
	}
	t.log = stderr
	return t
}

func (t *Table) fill(v bool) {
	for i := range t.slots {
		t.slots[i] = v
	}
}

// WithLog returns a copy of the table whose probe sites report to w.
func (t *Table) WithLog(w io.Writer) *Table {
	if t == nil {
		return nil
	}
	cp := &Table{slots: make([]bool, len(t.slots)), log: w}
	copy(cp.slots, t.slots)
	return cp
}

// Size returns the number of slots.
func (t *Table) Size() int {
	if t == nil {
		return 0
	}
	return len(t.slots)
}

// Enabled reports whether probe id is enabled. Out-of-range ids are disabled.
func (t *Table) Enabled(id int) bool {
	if t == nil || id < 0 || id >= len(t.slots) {
		return false
	}
	return t.slots[id]
}

// EnabledIDs returns the ids of all enabled slots in ascending order.
func (t *Table) EnabledIDs() []int {
	if t == nil {
		return nil
	}
	ids := make([]int, 0, len(t.slots))
	for i, on := range t.slots {
		if on {
			ids = append(ids, i)
		}
	}
	return ids
}

// Guard evaluates a probe site wrapping a short-circuit check. failed is the
// outcome of the check; the return value says whether the caller must take
// the short-circuit. On a nil table Guard returns failed unchanged. An enabled
// slot reverts the check, so a failed check is ignored and execution
// continues down the unpatched path. Only enabled slots are logged.
func (t *Table) Guard(id int, failed bool) bool {
	if t == nil {
		return failed
	}
	if !t.Enabled(id) {
		return failed
	}
	if failed {
		t.report("triggered", id)
	} else {
		t.report("reached", id)
	}
	return false
}

func (t *Table) report(what string, id int) {
	if t.log == nil {
		return
	}
	fmt.Fprintf(t.log, "[FIXREVERTER] %s bug index %d\n", what, id)
}

// AllEnabled is the environment value that enables every probe.
func AllEnabled() string { return string(ModeOff) + " " }

// NoneEnabled is the environment value that disables every probe.
func NoneEnabled() string { return string(ModeOn) + " " }

// Only is the environment value enabling exactly the given probes.
func Only(ids ...int) string {
	var b strings.Builder
	b.WriteString(string(ModeOn))
	for _, id := range ids {
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
