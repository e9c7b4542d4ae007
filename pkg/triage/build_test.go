/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: build_test.go
Description: Tests for triage binary builds against a recording executor.
*/

package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompiler struct {
	requests []execution.Request
	result   *execution.Result
	err      error
}

func (c *recordingCompiler) Execute(_ context.Context, req execution.Request) (*execution.Result, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func TestBuilderBuild(t *testing.T) {
	cfg := testConfig()
	cfg.Targets = map[string]string{"libxml2": "xml"}
	sites := gate.Sites{0: gate.CondAbort, 4: gate.CondAbort}

	t.Run("Compiles And Writes Sites", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		compiler := &recordingCompiler{result: &execution.Result{}}
		b := NewBuilder(cfg, compiler, fs, quietLogger(t), "/src")

		require.NoError(t, b.Build(context.Background(), "libxml2", sites))
		require.Len(t, compiler.requests, 1)
		assert.Equal(t, []string{"go", "build", "-tags", "frcov", "-o", "/work/triage-binaries/libxml2/xml", "./cmd/xml"}, compiler.requests[0].Args)
		assert.Equal(t, "/src", compiler.requests[0].Dir)

		ok, err := afero.DirExists(fs, "/work/triage-binaries/libxml2")
		require.NoError(t, err)
		assert.True(t, ok)
		loaded, err := LoadSites(fs, cfg, "libxml2")
		require.NoError(t, err)
		assert.Equal(t, sites, loaded)
	})

	t.Run("Compiler Failure", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		compiler := &recordingCompiler{result: &execution.Result{ExitCode: 1, Output: []byte("undefined: x")}}
		err := NewBuilder(cfg, compiler, fs, quietLogger(t), "/src").Build(context.Background(), "libxml2", sites)
		assert.ErrorIs(t, err, ErrBuild)
		assert.ErrorContains(t, err, "undefined: x")

		ok, _ := afero.Exists(fs, cfg.DDAFile("libxml2"))
		assert.False(t, ok, "no site list without a binary")
	})

	t.Run("Executor Error", func(t *testing.T) {
		compiler := &recordingCompiler{err: errors.New("go: not found")}
		err := NewBuilder(cfg, compiler, afero.NewMemMapFs(), quietLogger(t), "/src").Build(context.Background(), "libxml2", sites)
		assert.ErrorContains(t, err, "go: not found")
	})
}
