/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: build.go
Description: Builds the instrumented triage binaries of the harness targets in this
repository and writes the probe site list next to each one.
*/

package triage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// ErrBuild is returned when the compiler exits abnormally.
var ErrBuild = errors.New("build failed")

// Builder compiles triage binaries with the frcov tag.
type Builder struct {
	config   *Config
	executor execution.Executor
	fs       afero.Fs
	logger   *logging.Logger

	GoBinary  string // defaults to "go"
	SourceDir string // module root holding cmd/<target>
}

// NewBuilder creates a builder for the module rooted at sourceDir.
func NewBuilder(config *Config, executor execution.Executor, fs afero.Fs, logger *logging.Logger, sourceDir string) *Builder {
	return &Builder{
		config:    config,
		executor:  executor,
		fs:        fs,
		logger:    logger,
		GoBinary:  "go",
		SourceDir: sourceDir,
	}
}

// Command returns the compiler invocation for a benchmark.
func (b *Builder) Command(benchmark string) ([]string, error) {
	out, err := filepath.Abs(b.config.TriageBinary(benchmark))
	if err != nil {
		return nil, err
	}
	return []string{b.GoBinary, "build", "-tags", "frcov", "-o", out, "./cmd/" + b.config.Target(benchmark)}, nil
}

// Build compiles the triage binary of a benchmark and stores its site list.
func (b *Builder) Build(ctx context.Context, benchmark string, sites gate.Sites) error {
	args, err := b.Command(benchmark)
	if err != nil {
		return err
	}
	dir := filepath.Dir(b.config.TriageBinary(benchmark))
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	log := b.logger.GetLogger().WithFields(logrus.Fields{
		"benchmark": benchmark,
		"target":    b.config.Target(benchmark),
	})
	log.Debug("Building triage binary")

	res, err := b.executor.Execute(ctx, execution.Request{Args: args, Dir: b.SourceDir})
	if err != nil {
		return err
	}
	if res.Crashed() {
		return fmt.Errorf("%w: %s: exit %d: %s", ErrBuild, benchmark, res.ExitCode, res.Output)
	}

	if err := StoreSites(b.fs, b.config, benchmark, sites); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"binary": args[5],
		"sites":  len(sites),
	}).Info("Triage binary built")
	return nil
}
