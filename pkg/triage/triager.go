/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: triager.go
Description: Per-seed triage. Replays a seed against an instrumented binary to learn which
injections it reaches and triggers, then searches for the minimal sets of injections whose
reverted fixes make the seed crash.
*/

package triage

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/kleascm/fixreverter-harness/pkg/execution"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/logging"
)

// runSlack is added to the unit timeout to bound each replay.
const runSlack = 5 * time.Second

// Triager replays seeds.
type Triager struct {
	config   *Config
	executor execution.Executor
	logger   *logging.Logger
	environ  []string
}

// NewTriager creates a triager. The executor should enforce RunTimeout.
func NewTriager(config *Config, executor execution.Executor, logger *logging.Logger) *Triager {
	return &Triager{
		config:   config,
		executor: executor,
		logger:   logger,
		environ:  os.Environ(),
	}
}

// RunTimeout bounds a single replay.
func (c *Config) RunTimeout() time.Duration {
	return c.UnitTimeout + runSlack
}

// TimeoutSeconds is the unit timeout handed to the binary, in whole seconds
// rounded up. libFuzzer reads -timeout=0 as no timeout, so it is at least 1.
func (c *Config) TimeoutSeconds() int {
	return max(1, int(math.Ceil(c.UnitTimeout.Seconds())))
}

// Seed triages one seed in dir and records the result on it. Queue seeds only
// get reaches and triggers.
func (t *Triager) Seed(ctx context.Context, seed *Seed, dir string) error {
	res, err := t.replay(ctx, seed, dir, gate.AllEnabled())
	if err != nil {
		return err
	}
	seed.Reaches, seed.Triggers = ParseLog(res.Output)
	t.logger.LogSeed(seed.Trial, seed.Path, seed.Reaches, seed.Triggers)
	if seed.Type == SeedQueue {
		return nil
	}

	res, err = t.replay(ctx, seed, dir, gate.NoneEnabled())
	if err != nil {
		return err
	}
	seed.Crashes = [][]int{}
	// Crashes with every fix in place are not caused by an injection.
	if res.Crashed() {
		return nil
	}

	level := min(len(seed.Triggers), t.config.MaxCombination)
	for n := 1; n <= level; n++ {
		for _, set := range combinations(seed.Triggers, n) {
			if supersetOfAny(set, seed.Crashes) {
				continue
			}
			res, err := t.replay(ctx, seed, dir, gate.Only(set...))
			if err != nil {
				return err
			}
			if res.Crashed() {
				seed.Crashes = append(seed.Crashes, set)
				t.logger.LogCrashSet(seed.Trial, seed.Path, set)
			}
		}
	}
	return nil
}

func (t *Triager) replay(ctx context.Context, seed *Seed, dir, probes string) (*execution.Result, error) {
	req := execution.Request{
		Args: []string{
			t.config.TriageBinary(seed.Benchmark),
			fmt.Sprintf("-timeout=%d", t.config.TimeoutSeconds()),
			fmt.Sprintf("-rss_limit_mb=%d", t.config.RSSLimitMB),
			seed.Path,
		},
		Env: append(append([]string(nil), t.environ...), gate.EnvVar+"="+probes),
		Dir: dir,
	}
	res, err := t.executor.Execute(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to replay %s: %w", seed.Path, err)
	}
	return res, nil
}

// combinations returns every n-element subset of ids in lexicographic order
// of positions.
func combinations(ids []int, n int) [][]int {
	if n <= 0 || n > len(ids) {
		return nil
	}
	var out [][]int
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for {
		set := make([]int, n)
		for i, j := range idx {
			set[i] = ids[j]
		}
		out = append(out, set)

		i := n - 1
		for i >= 0 && idx[i] == len(ids)-n+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < n; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

func supersetOfAny(set []int, found [][]int) bool {
	members := make(map[int]bool, len(set))
	for _, id := range set {
		members[id] = true
	}
	for _, f := range found {
		contained := true
		for _, id := range f {
			if !members[id] {
				contained = false
				break
			}
		}
		if contained {
			return true
		}
	}
	return false
}
