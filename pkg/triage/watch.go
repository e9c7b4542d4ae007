/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: watch.go
Description: Live triage. Watches the crash stores of running trials with fsnotify and
triages each crash file as soon as the fuzzer writes it.
*/

package triage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kleascm/fixreverter-harness/pkg/logging"
	"github.com/sirupsen/logrus"
)

// ErrNothingToWatch is returned when no crash directory could be watched.
var ErrNothingToWatch = errors.New("no crash directory to watch")

// Watcher triages crash files as they appear.
type Watcher struct {
	triager *Triager
	logger  *logging.Logger
	dir     string

	// Settle delays triage after a file appears so the fuzzer can finish
	// writing it.
	Settle time.Duration
}

// NewWatcher creates a watcher running replays in dir.
func NewWatcher(triager *Triager, logger *logging.Logger, dir string) *Watcher {
	return &Watcher{triager: triager, logger: logger, dir: dir, Settle: 100 * time.Millisecond}
}

// Watch triages new crash seeds of every trial until ctx is done. found is
// called with each triaged seed.
func (w *Watcher) Watch(ctx context.Context, trials map[string]string, benchmark, fuzzer string, found func(Seed)) error {
	stores, err := Stores(fuzzer, SeedCrash)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	log := w.logger.GetLogger()
	owner := make(map[string]string)
	for _, trial := range TrialNames(trials) {
		for _, rel := range stores {
			dir := filepath.Join(trials[trial], rel)
			if err := watcher.Add(dir); err != nil {
				log.WithError(err).WithField("dir", dir).Warn("Watch skipped directory")
				continue
			}
			owner[dir] = trial
			log.WithField("dir", dir).Info("Watching crash directory")
		}
	}
	if len(owner) == 0 {
		return ErrNothingToWatch
	}

	start := time.Now()
	next := make(map[string]int)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			trial, ok := owner[filepath.Dir(event.Name)]
			name := filepath.Base(event.Name)
			if !ok || !wantFile(name, fuzzer, SeedCrash) {
				continue
			}

			seed := Seed{
				Path:      event.Name,
				Type:      SeedCrash,
				Benchmark: benchmark,
				Fuzzer:    fuzzer,
				Trial:     trial,
				ID:        next[trial],
				Time:      roundCenti(time.Since(start).Seconds()),
			}
			if id, err := strconv.Atoi(nameFields(name)["id"]); err == nil {
				seed.ID = id
			}
			next[trial] = max(next[trial], seed.ID) + 1

			if w.Settle > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(w.Settle):
				}
			}
			if err := w.triager.Seed(ctx, &seed, w.dir); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.WithError(err).WithField("seed", name).Error("Watch triage failed")
				continue
			}
			log.WithFields(logrus.Fields{
				"trial":      trial,
				"seed":       name,
				"crash_sets": len(seed.Crashes),
			}).Info("Watch triaged seed")
			found(seed)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("Watch error")
		}
	}
}
