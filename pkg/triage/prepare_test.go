/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: prepare_test.go
Description: Tests for experiment resolution and corpus archive extraction.
*/

package triage

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type member struct {
	name string
	body string
	dir  bool
}

func tarball(t *testing.T, members ...member) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, m := range members {
		hdr := &tar.Header{Name: m.name, Mode: 0o644, Size: int64(len(m.body)), Typeflag: tar.TypeReg}
		if m.dir {
			hdr = &tar.Header{Name: m.name, Mode: 0o755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !m.dir {
			_, err := tw.Write([]byte(m.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func quietFieldLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestExtractCorpus(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.tar.gz", tarball(t,
		member{name: "corpus/", dir: true},
		member{name: "corpus/default/queue/id:000000", body: "seed"},
		member{name: "corpus/default/crashes/README.txt", body: "readme"},
		member{name: "stats/fuzzer_stats", body: "skip"},
		member{name: "corpus/../../escape", body: "evil"},
	), 0o644))

	n, err := ExtractCorpus(fs, "/a.tar.gz", "/dest")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := afero.ReadFile(fs, "/dest/default/queue/id:000000")
	require.NoError(t, err)
	assert.Equal(t, "seed", string(data))

	for _, p := range []string{"/dest/stats/fuzzer_stats", "/escape", "/dest/../escape"} {
		ok, _ := afero.Exists(fs, p)
		assert.False(t, ok, p)
	}

	_, err = ExtractCorpus(fs, "/missing.tar.gz", "/dest")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.tar.gz", []byte("not gzip"), 0o644))
	_, err = ExtractCorpus(fs, "/bad.tar.gz", "/dest")
	assert.Error(t, err)
}

func TestLatestArchive(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs,
		"/c/corpus-archive-0002.tar.gz",
		"/c/corpus-archive-0010.tar.gz",
		"/c/corpus-archive-0009.tar.gz",
		"/c/notes.txt",
	)

	path, id, err := LatestArchive(fs, "/c")
	require.NoError(t, err)
	assert.Equal(t, "/c/corpus-archive-0010.tar.gz", path)
	assert.Equal(t, 10, id)

	writeFiles(t, fs, "/empty/notes.txt")
	_, _, err = LatestArchive(fs, "/empty")
	assert.ErrorIs(t, err, ErrNoArchive)
}

func prepareConfig() *Config {
	cfg := testConfig()
	cfg.FuzzbenchExpDir = "/fb"
	cfg.Experiments = []string{"exp-a", "exp-b"}
	cfg.Fuzzers = []string{"afl", "libfuzzer"}
	return cfg
}

func TestSources(t *testing.T) {
	t.Run("Resolved", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/fb/exp-b/experiment-folders/libxml2-afl", 0o755))
		require.NoError(t, fs.MkdirAll("/fb/exp-b/experiment-folders/libxml2-libfuzzer", 0o755))

		sources, err := Sources(fs, prepareConfig())
		require.NoError(t, err)
		assert.Equal(t, []Source{
			{Benchmark: "libxml2", Fuzzer: "afl", Experiment: "exp-b"},
			{Benchmark: "libxml2", Fuzzer: "libfuzzer", Experiment: "exp-b"},
		}, sources)
	})

	t.Run("Missing Pair", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/fb/exp-a/experiment-folders/libxml2-afl", 0o755))
		_, err := Sources(fs, prepareConfig())
		assert.ErrorIs(t, err, ErrNoExperiment)
	})

	t.Run("Duplicate Pair", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/fb/exp-a/experiment-folders/libxml2-afl", 0o755))
		require.NoError(t, fs.MkdirAll("/fb/exp-b/experiment-folders/libxml2-afl", 0o755))
		_, err := Sources(fs, prepareConfig())
		assert.ErrorIs(t, err, ErrManyExperiments)
	})

	t.Run("Split Benchmark", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, fs.MkdirAll("/fb/exp-a/experiment-folders/libxml2-afl", 0o755))
		require.NoError(t, fs.MkdirAll("/fb/exp-b/experiment-folders/libxml2-libfuzzer", 0o755))
		_, err := Sources(fs, prepareConfig())
		assert.ErrorIs(t, err, ErrManyExperiments)
	})
}

func TestPrepare(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := prepareConfig()
	cfg.Fuzzers = []string{"afl"}

	trialDir := "/fb/exp-a/experiment-folders/libxml2-afl/trial-7/corpus"
	require.NoError(t, afero.WriteFile(fs, trialDir+"/corpus-archive-0001.tar.gz",
		tarball(t, member{name: "corpus/queue/id:000000", body: "old"}), 0o644))
	require.NoError(t, afero.WriteFile(fs, trialDir+"/corpus-archive-0003.tar.gz",
		tarball(t, member{name: "corpus/crashes/id:000000,sig:11", body: "new"}), 0o644))
	writeFiles(t, fs, "/work/data/libxml2/afl/stale/file")

	require.NoError(t, NewPreparer(cfg, fs, quietFieldLogger()).Prepare())

	trials, err := cfg.Trials(fs, "libxml2", "afl")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"trial-7": "/work/data/libxml2/afl/trial-7"}, trials)

	seeds, err := Discover(fs, trials, "libxml2", "afl", SeedCrash)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "/work/data/libxml2/afl/trial-7/corpus/crashes/id:000000,sig:11", seeds[0].Path)

	ok, _ := afero.Exists(fs, "/work/data/libxml2/afl/trial-7/corpus/queue/id:000000")
	assert.False(t, ok)
}
