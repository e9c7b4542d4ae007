/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fake_test.go
Description: Test doubles for triage: a scripted instrumented binary and a quiet logger.
*/

package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/logging"
	"github.com/stretchr/testify/require"
)

// behaviour scripts how the fake binary reacts to one seed.
type behaviour struct {
	reaches  []int   // reached but not triggered
	triggers []int   // triggered
	crashes  [][]int // enabled trigger sets that crash
	always   bool    // crashes with every fix in place
}

type fakeBinary struct {
	mu       sync.Mutex
	seeds    map[string]behaviour // by seed base name
	requests []execution.Request
	fail     error
}

func newFakeBinary(seeds map[string]behaviour) *fakeBinary {
	return &fakeBinary{seeds: seeds}
}

func (f *fakeBinary) Execute(_ context.Context, req execution.Request) (*execution.Result, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		return nil, fail
	}

	b, ok := f.seeds[filepath.Base(req.Args[len(req.Args)-1])]
	if !ok {
		return nil, errors.New("unknown seed")
	}
	all, enabled := parseProbes(envValue(req.Env, gate.EnvVar))

	var out strings.Builder
	active := make(map[int]bool)
	for _, id := range b.reaches {
		if all || enabled[id] {
			fmt.Fprintf(&out, "[FIXREVERTER] reached bug index %d\n", id)
		}
	}
	for _, id := range b.triggers {
		if all || enabled[id] {
			fmt.Fprintf(&out, "[FIXREVERTER] triggered bug index %d\n", id)
			active[id] = true
		}
	}

	res := &execution.Result{Output: []byte(out.String())}
	if b.always {
		res.ExitCode = 1
	}
	for _, set := range b.crashes {
		hit := true
		for _, id := range set {
			hit = hit && active[id]
		}
		if hit {
			res.ExitCode = 1
		}
	}
	return res, nil
}

func (f *fakeBinary) probeValues() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make([]string, len(f.requests))
	for i, r := range f.requests {
		values[i] = envValue(r.Env, gate.EnvVar)
	}
	return values
}

func envValue(env []string, key string) string {
	value := ""
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			value = v
		}
	}
	return value
}

func parseProbes(value string) (all bool, enabled map[int]bool) {
	fields := strings.Fields(value)
	enabled = make(map[int]bool)
	if len(fields) == 0 {
		return false, enabled
	}
	if fields[0] == "off" {
		return true, enabled
	}
	for _, f := range fields[1:] {
		if id, err := strconv.Atoi(f); err == nil {
			enabled[id] = true
		}
	}
	return false, enabled
}

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(&logging.LoggerConfig{
		Level:   logging.LogLevelDebug,
		Format:  logging.LogFormatCustom,
		Console: io.Discard,
	})
	require.NoError(t, err)
	return logger
}

func testConfig() *Config {
	c := DefaultConfig()
	c.WorkDir = "/work"
	c.OutDir = "/out"
	c.Benchmarks = []string{"libxml2"}
	c.Fuzzers = []string{"aflplusplus"}
	return c
}
