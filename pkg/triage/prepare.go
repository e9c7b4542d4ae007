/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: prepare.go
Description: Extracts FuzzBench experiment results into the triage work directory. Each
benchmark/fuzzer pair must come from exactly one experiment; for every trial the newest
corpus archive is unpacked with its corpus/ prefix stripped.
*/

package triage

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

var (
	ErrNoExperiment    = errors.New("pair does not appear in any experiment")
	ErrManyExperiments = errors.New("pair appears in multiple experiments")
	ErrNoArchive       = errors.New("no corpus archive")
)

var archiveRe = regexp.MustCompile(`^corpus-archive-(\d+)\.tar\.gz$`)

// Source names the experiment holding a benchmark/fuzzer pair.
type Source struct {
	Benchmark  string
	Fuzzer     string
	Experiment string
}

// Sources maps every configured pair to its experiment. All fuzzers of a
// benchmark must share one experiment.
func Sources(fs afero.Fs, config *Config) ([]Source, error) {
	var sources []Source
	for _, benchmark := range config.Benchmarks {
		experiments := make(map[string]struct{})
		for _, fuzzer := range config.Fuzzers {
			var found []string
			for _, exp := range config.Experiments {
				if ok, _ := afero.DirExists(fs, config.FuzzbenchDataDir(benchmark, fuzzer, exp)); ok {
					found = append(found, exp)
				}
			}
			switch len(found) {
			case 0:
				return nil, fmt.Errorf("%w: %s-%s", ErrNoExperiment, benchmark, fuzzer)
			case 1:
			default:
				return nil, fmt.Errorf("%w: %s-%s in %v", ErrManyExperiments, benchmark, fuzzer, found)
			}
			experiments[found[0]] = struct{}{}
			sources = append(sources, Source{Benchmark: benchmark, Fuzzer: fuzzer, Experiment: found[0]})
		}
		if len(experiments) > 1 {
			return nil, fmt.Errorf("%w: fuzzers on %s", ErrManyExperiments, benchmark)
		}
	}
	return sources, nil
}

// Preparer extracts trial corpora.
type Preparer struct {
	config *Config
	fs     afero.Fs
	logger logrus.FieldLogger
}

// NewPreparer creates a preparer.
func NewPreparer(config *Config, fs afero.Fs, logger logrus.FieldLogger) *Preparer {
	return &Preparer{config: config, fs: fs, logger: logger}
}

// Prepare extracts every configured pair, replacing earlier extractions.
func (p *Preparer) Prepare() error {
	sources, err := Sources(p.fs, p.config)
	if err != nil {
		return err
	}
	for _, src := range sources {
		if err := p.extractPair(src); err != nil {
			return err
		}
	}
	return nil
}

func (p *Preparer) extractPair(src Source) error {
	dest := p.config.PairDataDir(src.Benchmark, src.Fuzzer)
	if err := p.fs.RemoveAll(dest); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dest, err)
	}
	root := p.config.FuzzbenchDataDir(src.Benchmark, src.Fuzzer, src.Experiment)
	trials, err := afero.ReadDir(p.fs, root)
	if err != nil {
		return fmt.Errorf("failed to list trials in %s: %w", root, err)
	}
	for _, trial := range trials {
		if !trial.IsDir() {
			continue
		}
		corpusDir := filepath.Join(root, trial.Name(), "corpus")
		archive, snapshot, err := LatestArchive(p.fs, corpusDir)
		if err != nil {
			return err
		}
		p.logger.WithFields(logrus.Fields{
			"dir":      corpusDir,
			"snapshot": snapshot,
		}).Info("Corpus snapshot selected")

		// Corpus stores are addressed relative to the trial as corpus/...
		target := filepath.Join(p.config.TrialDataDir(src.Benchmark, src.Fuzzer, trial.Name()), "corpus")
		n, err := ExtractCorpus(p.fs, archive, target)
		if err != nil {
			return err
		}
		p.logger.WithFields(logrus.Fields{
			"trial": trial.Name(),
			"files": n,
		}).Debug("Corpus extracted")
	}
	return nil
}

// LatestArchive returns the corpus archive with the highest snapshot number.
func LatestArchive(fs afero.Fs, dir string) (string, int, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	best, bestID := "", -1
	for _, e := range entries {
		m := archiveRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if id > bestID {
			best, bestID = e.Name(), id
		}
	}
	if bestID < 0 {
		return "", 0, fmt.Errorf("%w in %s", ErrNoArchive, dir)
	}
	return filepath.Join(dir, best), bestID, nil
}

// ExtractCorpus unpacks the members under corpus/ of a gzipped tarball into
// dest, stripping that prefix. It returns the number of files written.
func ExtractCorpus(fs afero.Fs, archive, dest string) (int, error) {
	f, err := fs.Open(archive)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", archive, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", archive, err)
	}
	defer gz.Close()

	if err := fs.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	count := 0
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("failed to read %s: %w", archive, err)
		}
		rel, ok := strings.CutPrefix(hdr.Name, "corpus/")
		if !ok || rel == "" {
			continue
		}
		// Refuse members escaping dest.
		clean := path.Clean(rel)
		if clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(clean))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0o755); err != nil {
				return count, fmt.Errorf("failed to create %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writeMember(fs, target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return count, err
			}
			count++
		}
	}
}

func writeMember(fs afero.Fs, target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0o644
	}
	if err := fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}
	out, err := fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return out.Close()
}
