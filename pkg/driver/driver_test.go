/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: driver_test.go
Description: Tests for the replay driver loop and its command wrapper.
*/

package driver_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/kleascm/fixreverter-harness/pkg/driver"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	inputs []string
}

func (r *recorder) entry(data []byte) int {
	r.inputs = append(r.inputs, string(data))
	return 0
}

func newFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o600))
	}
	return fs
}

func TestRunReplaysInOrder(t *testing.T) {
	fs := newFs(t, map[string]string{
		"/in/a":     "first",
		"/in/b":     "second!",
		"/in/empty": "",
	})
	rec := &recorder{}
	var out bytes.Buffer

	code := driver.Run([]string{"/in/b", "/missing", "/in/empty", "/in/a", "-timeout=25"}, driver.Config{
		Stdout: &out,
		Fs:     fs,
		Entry:  rec.entry,
	})

	assert.Equal(t, 0, code)
	assert.Equal(t, []string{"second!", "first"}, rec.inputs)
	assert.Equal(t,
		"Reading 7 bytes from /in/b\nExecution successful.\n"+
			"Reading 5 bytes from /in/a\nExecution successful.\n",
		out.String())
}

func TestRunReadsStdin(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer

	driver.Run([]string{"-"}, driver.Config{
		Stdin:  strings.NewReader("<a/>"),
		Stdout: &out,
		Fs:     afero.NewMemMapFs(),
		Entry:  rec.entry,
	})

	assert.Equal(t, []string{"<a/>"}, rec.inputs)
	assert.Equal(t, "Reading 4 bytes from -\nExecution successful.\n", out.String())
}

func TestRunCapsInput(t *testing.T) {
	fs := newFs(t, map[string]string{"/big": strings.Repeat("x", driver.MaxInput+10)})
	rec := &recorder{}

	driver.Run([]string{"/big"}, driver.Config{Stdout: &bytes.Buffer{}, Fs: fs, Entry: rec.entry})

	require.Len(t, rec.inputs, 1)
	assert.Len(t, rec.inputs[0], driver.MaxInput)
}

func TestRunNoArguments(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer

	assert.Equal(t, 0, driver.Run(nil, driver.Config{Stdout: &out, Fs: afero.NewMemMapFs(), Entry: rec.entry}))
	assert.Empty(t, out.String())
	assert.Empty(t, rec.inputs)
}

func TestCommandTreatsFlagsAsPaths(t *testing.T) {
	rec := &recorder{}
	var out bytes.Buffer

	cmd := driver.NewCommand("xml", rec.entry)
	cmd.SetArgs([]string{"--help", "-"})
	cmd.SetIn(strings.NewReader("data"))
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, []string{"data"}, rec.inputs)
	assert.Equal(t, "Reading 4 bytes from -\nExecution successful.\n", out.String())
}
