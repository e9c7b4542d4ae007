/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for the probe listing and in-process replay commands, the coverage and
build commands, and for config decoding through viper.
*/

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/triage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayCommand(probes string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.Flags().String("probes", probes, "")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func writeInput(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestListProbes(t *testing.T) {
	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, ListProbes(cmd, nil))
	text := out.String()
	for _, want := range []string{"cxxfilt", "11895", "cms_transform", "639", "xml_reader", "4734", "5212"} {
		assert.Contains(t, text, want)
	}
}

func TestRunReplay(t *testing.T) {
	input := writeInput(t, "sym", "_ZN3foo3barEi")

	t.Run("Completed", func(t *testing.T) {
		cmd, out, errOut := replayCommand("on ")
		require.NoError(t, RunReplay(cmd, []string{"cxxfilt", input}))
		assert.Equal(t, input+": completed foo::bar(int)\n", out.String())
		assert.Empty(t, errOut.String())
	})

	t.Run("Rejected", func(t *testing.T) {
		garbage := writeInput(t, "junk", "garbage")
		cmd, out, _ := replayCommand("on ")
		require.NoError(t, RunReplay(cmd, []string{"cms_transform", garbage}))
		assert.True(t, strings.HasPrefix(out.String(), garbage+": rejected at open-profile"))
	})

	t.Run("Crashed", func(t *testing.T) {
		garbage := writeInput(t, "junk", "garbage")
		cmd, out, errOut := replayCommand("on 0")
		require.NoError(t, RunReplay(cmd, []string{"cms_transform", garbage}))
		assert.True(t, strings.HasPrefix(out.String(), garbage+": crashed: "))
		assert.Equal(t, "[FIXREVERTER] triggered bug index 0\n", errOut.String())
	})

	t.Run("Missing File", func(t *testing.T) {
		cmd, out, _ := replayCommand("")
		require.NoError(t, RunReplay(cmd, []string{"xml", "/does/not/exist"}))
		assert.Contains(t, out.String(), "/does/not/exist: ")
	})

	t.Run("Bad Arguments", func(t *testing.T) {
		cmd, _, _ := replayCommand("")
		assert.Error(t, RunReplay(cmd, []string{"nosuch", input}))

		cmd, _, _ = replayCommand("maybe 1")
		assert.Error(t, RunReplay(cmd, []string{"cxxfilt", input}))
	})
}

func TestTriageConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cfgFile := writeInput(t, "triage.yaml", `
work_dir: /data/work
out_dir: /data/out
fuzzbench_exp_dir: /data/fuzzbench
experiments: [exp-2024]
benchmarks: [libxml2_xml, lcms]
fuzzers: [aflplusplus, libfuzzer]
cores: 8
unit_timeout: 2s
targets:
  libxml2_xml: xml
`)
	viper.Set("config", cfgFile)
	viper.Set("triage.max_combination", 2)
	require.NoError(t, LoadConfig())

	config, err := TriageConfig()
	require.NoError(t, err)
	assert.Equal(t, "/data/work", config.WorkDir)
	assert.Equal(t, "/data/out", config.OutDir)
	assert.Equal(t, []string{"libxml2_xml", "lcms"}, config.Benchmarks)
	assert.Equal(t, []string{"aflplusplus", "libfuzzer"}, config.Fuzzers)
	assert.Equal(t, 8, config.Cores)
	assert.Equal(t, 2*time.Second, config.UnitTimeout)
	assert.Equal(t, 2048, config.RSSLimitMB)
	assert.Equal(t, 2, config.MaxCombination)
	assert.Equal(t, "/data/work/triage-binaries/libxml2_xml/xml", config.TriageBinary("libxml2_xml"))

	viper.Set("cores", 0)
	_, err = TriageConfig()
	assert.Error(t, err)
}

// commandConfig points viper at a temporary work and output tree.
func commandConfig(t *testing.T, benchmark string) *triage.Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("log.level", "error")
	viper.Set("log.format", "text")
	viper.Set("work_dir", filepath.Join(dir, "work"))
	viper.Set("out_dir", filepath.Join(dir, "out"))
	viper.Set("cores", 1)
	viper.Set("benchmarks", []string{benchmark})
	viper.Set("fuzzers", []string{"aflplusplus"})

	config, err := TriageConfig()
	require.NoError(t, err)
	return config
}

func TestRunCoverage(t *testing.T) {
	config := commandConfig(t, "libxml2")
	fs := afero.NewOsFs()
	require.NoError(t, triage.Store(fs, config, []triage.Seed{
		{Path: "q", Type: triage.SeedQueue, Benchmark: "libxml2", Fuzzer: "aflplusplus", Trial: "t1", Reaches: []int{1, 2}},
	}))
	require.NoError(t, triage.Store(fs, config, []triage.Seed{
		{Path: "c", Type: triage.SeedCrash, Benchmark: "libxml2", Fuzzer: "aflplusplus", Trial: "t1", Triggers: []int{2}, Crashes: [][]int{{2}}},
	}))
	require.NoError(t, triage.StoreSites(fs, config, "libxml2", gate.Sites{1: gate.CondAbort, 2: gate.CondExec}))

	cmd := &cobra.Command{}
	var out bytes.Buffer
	cmd.SetOut(&out)
	require.NoError(t, RunCoverage(cmd, nil))
	text := out.String()
	assert.Contains(t, text, "MetaFuzzer")
	assert.Contains(t, text, "single_causes")
	assert.Regexp(t, `libxml2\s*\|\s*2 \(1 1 0\)\s*\|\s*1 \(0 1 0\)`, text)
}

func TestRunBuildRejectsUnknownTarget(t *testing.T) {
	commandConfig(t, "lcms")
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	err := RunBuild(cmd, nil)
	assert.ErrorContains(t, err, `benchmark lcms: unknown target "lcms"`)
}
