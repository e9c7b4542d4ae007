/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: targets_test.go
Description: Tests for the harness adapters: framing of each input, short-circuits on
malformed input, resource release on every path and probe guard behaviour.
*/

package targets_test

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/icc"
	"github.com/kleascm/fixreverter-harness/pkg/targets"
	"github.com/kleascm/fixreverter-harness/pkg/xmlparse"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one input without probes and checks that nothing leaked.
func run(t testing.TB, target harness.Target, data []byte) (harness.Result, *harness.Tracker) {
	t.Helper()
	tracker := harness.NewTracker()
	h := harness.New(target, harness.WithProbes(nil), harness.WithTracker(tracker))
	res := h.Exec(data)
	assert.Empty(t, tracker.Outstanding(), "leaked resources for %q", data)
	return res, tracker
}

func profileBytes(class icc.DeviceClass, space icc.ColorSpace) []byte {
	p := &icc.Profile{Header: icc.Header{
		Version:    icc.Version{Major: 4, Minor: 3},
		Class:      class,
		ColorSpace: space,
		PCS:        icc.SpaceXYZ,
	}}
	return p.Encode()
}

func readerInput(options int32, encoding string, doc string) []byte {
	var b bytes.Buffer
	b.Write([]byte{byte(options), byte(options >> 8), byte(options >> 16), byte(options >> 24)})
	b.WriteString(strings.ReplaceAll(encoding, `\`, `\\`))
	b.WriteString(`\;`)
	b.WriteString(doc)
	return b.Bytes()
}

func TestTerminate(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
	}{
		{"Empty", nil},
		{"Symbol", []byte("_Z1fv")},
		{"Embedded NUL", []byte("_Z1f\x00v")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := targets.Terminate(tc.input)
			require.Len(t, buf, len(tc.input)+1)
			assert.Equal(t, byte(0), buf[len(tc.input)])
			assert.True(t, bytes.Equal(tc.input, buf[:len(tc.input)]))
		})
	}

	assert.Equal(t, "_Z1f", targets.CString(targets.Terminate([]byte("_Z1f\x00v"))))
}

func TestCxxfilt(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
		mangled  bool
	}{
		{"Function", "_Z1fv", "f()", true},
		{"Namespaced", "_ZN3foo3barEi", "foo::bar(int)", true},
		{"Plain Name", "main", "main", false},
		{"Empty", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, tracker := run(t, targets.Cxxfilt{}, []byte(tc.input))
			assert.True(t, res.OK())
			assert.Equal(t, tc.expected, res.Detail)
			assert.Equal(t, !tc.mangled, res.Err != nil)
			assert.Equal(t, 1, tracker.Acquired("buffer"))
		})
	}
}

func TestCMSTransform(t *testing.T) {
	t.Run("Not A Profile", func(t *testing.T) {
		res, tracker := run(t, targets.CMSTransform{}, []byte("definitely not icc"))
		assert.Equal(t, harness.Rejected, res.Outcome)
		assert.Equal(t, targets.StageOpenProfile, res.Stage)
		assert.Zero(t, tracker.Acquired("transform"))
	})

	t.Run("RGB Profile", func(t *testing.T) {
		res, tracker := run(t, targets.CMSTransform{}, profileBytes(icc.ClassDisplay, icc.SpaceRGB))
		require.True(t, res.OK(), "%v", res.Err)
		assert.NoError(t, res.Err)
		assert.Equal(t, "ANY/3/8 -> 80 80 80 00", res.Detail)
		assert.Equal(t, 2, tracker.Acquired("profile"))
		assert.Equal(t, 1, tracker.Acquired("transform"))
	})

	t.Run("Lab Profile Uses Float Input", func(t *testing.T) {
		res, _ := run(t, targets.CMSTransform{}, profileBytes(icc.ClassColorSpace, icc.SpaceLab))
		require.True(t, res.OK(), "%v", res.Err)
		assert.True(t, strings.HasPrefix(res.Detail, "Lab /3/dbl -> "))
	})

	t.Run("Unsupported Space", func(t *testing.T) {
		res, tracker := run(t, targets.CMSTransform{}, profileBytes(icc.ClassColorSpace, icc.Sig("MCH5")))
		assert.Equal(t, harness.Rejected, res.Outcome)
		assert.Equal(t, targets.StageTransform, res.Stage)
		assert.Equal(t, 2, tracker.Acquired("profile"))
		assert.Zero(t, tracker.Acquired("transform"))
	})

	t.Run("Device Link", func(t *testing.T) {
		res, _ := run(t, targets.CMSTransform{}, profileBytes(icc.ClassLink, icc.SpaceRGB))
		assert.Equal(t, targets.StageTransform, res.Stage)
	})
}

func TestXMLReader(t *testing.T) {
	t.Run("Walks Document", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		res, tracker := run(t, targets.XMLReader{Fs: fs}, readerInput(0, "", "<a><b>t</b></a>"))
		require.True(t, res.OK())
		assert.NoError(t, res.Err)
		assert.Equal(t, "5 nodes", res.Detail)
		assert.Equal(t, 1, tracker.Acquired("reader"))

		left, err := afero.Glob(fs, os.TempDir()+"/fuzz-*.xml")
		require.NoError(t, err)
		assert.Empty(t, left)
	})

	t.Run("Encoding Hint", func(t *testing.T) {
		res, _ := run(t, targets.XMLReader{Fs: afero.NewMemMapFs()}, readerInput(0, "latin1", "<a>caf\xe9</a>"))
		require.True(t, res.OK())
		assert.NoError(t, res.Err)
		assert.Equal(t, "3 nodes", res.Detail)
	})

	t.Run("Unknown Encoding", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		res, tracker := run(t, targets.XMLReader{Fs: fs}, readerInput(0, "klingon", "<a/>"))
		assert.Equal(t, harness.Rejected, res.Outcome)
		assert.Equal(t, targets.StageOpenReader, res.Stage)
		assert.ErrorIs(t, res.Err, xmlparse.ErrEncoding)
		assert.Zero(t, tracker.Acquired("reader"))
		assert.Equal(t, 1, tracker.Acquired("file"))
	})

	t.Run("Shorter Than Int", func(t *testing.T) {
		res, _ := run(t, targets.XMLReader{Fs: afero.NewMemMapFs()}, []byte{0x01, 0x02})
		assert.True(t, res.OK())
		assert.ErrorIs(t, res.Err, xmlparse.ErrEmptyDocument)
		assert.Equal(t, "0 nodes", res.Detail)
	})

	t.Run("Options From Front", func(t *testing.T) {
		input := readerInput(int32(xmlparse.NoBlanks), "", "<a> <b/> </a>")
		res, _ := run(t, targets.XMLReader{Fs: afero.NewMemMapFs()}, input)
		assert.Equal(t, "4 nodes", res.Detail)
	})
}

func TestXMLDoc(t *testing.T) {
	res, tracker := run(t, targets.XMLDoc{}, []byte("<a/>"))
	assert.True(t, res.OK())
	assert.Equal(t, "a", res.Detail)
	assert.Equal(t, 1, tracker.Acquired("document"))

	res, tracker = run(t, targets.XMLDoc{}, []byte("<a><b"))
	assert.Equal(t, harness.Rejected, res.Outcome)
	assert.Equal(t, targets.StageParse, res.Stage)
	assert.Zero(t, tracker.Acquired("document"))
}

func slotTable(t *testing.T, log *bytes.Buffer, value string, size int) *gate.Table {
	t.Helper()
	table, err := gate.Parse(value, size)
	require.NoError(t, err)
	return table.WithLog(log)
}

func TestShortCircuitsWithEverySlotEnabled(t *testing.T) {
	testCases := []struct {
		name    string
		target  harness.Target
		input   []byte
		outcome harness.Outcome
	}{
		{"Unsupported Colour Space", targets.CMSTransform{}, profileBytes(icc.ClassColorSpace, icc.Sig("MCH5")), harness.Rejected},
		{"Truncated Document", targets.XMLDoc{}, []byte("<a><b"), harness.Rejected},
		{"Mismatched Reader Markup", targets.XMLReader{Fs: afero.NewMemMapFs()}, readerInput(0, "", "<a><b></a>"), harness.Completed},
		{"Mangled Symbol", targets.Cxxfilt{}, []byte("_Z1fv"), harness.Completed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var log bytes.Buffer
			tracker := harness.NewTracker()
			h := harness.New(tc.target,
				harness.WithProbes(slotTable(t, &log, gate.AllEnabled(), tc.target.Probes())),
				harness.WithTracker(tracker))

			var res harness.Result
			require.NotPanics(t, func() { res = h.Exec(tc.input) })
			assert.Equal(t, tc.outcome, res.Outcome)
			assert.Equal(t, 0, h.TestOneInput(tc.input))
			assert.Empty(t, tracker.Outstanding())
			assert.NotContains(t, log.String(), "triggered")
		})
	}
}

func TestRevertedCheckCrashesInsideLibrary(t *testing.T) {
	testCases := []struct {
		name   string
		target harness.Target
		id     int
		input  []byte
	}{
		{"Profile Header", targets.CMSTransform{}, icc.ProbeTruncated, []byte("garbage")},
		{"Document Root", targets.XMLDoc{}, xmlparse.ProbeNoRoot, nil},
		{"Reader Encoding", targets.XMLReader{Fs: afero.NewMemMapFs()}, xmlparse.ProbeEncoding, readerInput(0, "klingon", "<a/>")},
		{"Demangle Error", targets.Cxxfilt{}, targets.ProbeDemangleError, []byte("main")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var log bytes.Buffer
			h := harness.New(tc.target, harness.WithProbes(slotTable(t, &log, gate.Only(tc.id), tc.target.Probes())))
			assert.Panics(t, func() { h.TestOneInput(tc.input) })
			assert.Contains(t, log.String(), fmt.Sprintf("[FIXREVERTER] triggered bug index %d\n", tc.id))
		})
	}
}

func TestDisabledSlotsKeepChecks(t *testing.T) {
	var log bytes.Buffer
	doc := harness.New(targets.XMLDoc{}, harness.WithProbes(slotTable(t, &log, gate.NoneEnabled(), 5212)))
	assert.Equal(t, 0, doc.TestOneInput([]byte("<a")))
	assert.Equal(t, 0, doc.TestOneInput(nil))

	cms := harness.New(targets.CMSTransform{}, harness.WithProbes(slotTable(t, &log, gate.NoneEnabled(), 639)))
	assert.Equal(t, 0, cms.TestOneInput([]byte("garbage")))
	assert.Empty(t, log.String())
}

func TestDemangle(t *testing.T) {
	name, err := targets.Demangle("_ZN3foo3barEi", nil)
	require.NoError(t, err)
	assert.Equal(t, "foo::bar(int)", name)

	long := "_Z" + strings.Repeat("x", 40000)
	_, err = targets.Demangle(long, nil)
	assert.ErrorIs(t, err, targets.ErrSymbolTooLong)

	var log bytes.Buffer
	table := slotTable(t, &log, gate.Only(targets.ProbeSymbolLength), 11895)
	assert.Panics(t, func() { _, _ = targets.Demangle(long, table) })
	assert.Equal(t, "[FIXREVERTER] triggered bug index 0\n", log.String())
}

func TestRegistry(t *testing.T) {
	var names []string
	for _, target := range targets.All() {
		names = append(names, target.Name())
	}
	assert.Equal(t, []string{"cms_transform", "cxxfilt", "xml", "xml_reader"}, names)

	target, err := targets.Lookup("xml")
	require.NoError(t, err)
	assert.Equal(t, 5212, target.Probes())

	_, err = targets.Lookup("nope")
	assert.Error(t, err)
}

func TestSitesOf(t *testing.T) {
	testCases := []struct {
		target  harness.Target
		sites   int
		execIDs []int
	}{
		{targets.CMSTransform{}, 9, []int{icc.ProbeTagBounds}},
		{targets.Cxxfilt{}, 2, nil},
		{targets.XMLDoc{}, 3, nil},
		{targets.XMLReader{}, 4, nil},
	}
	for _, tc := range testCases {
		t.Run(tc.target.Name(), func(t *testing.T) {
			sites := targets.SitesOf(tc.target)
			require.Len(t, sites, tc.sites)

			var exec []int
			for id, pattern := range sites {
				assert.Less(t, id, tc.target.Probes())
				if pattern == gate.CondExec {
					exec = append(exec, id)
				}
			}
			assert.ElementsMatch(t, tc.execIDs, exec)
		})
	}
}

func fuzzTarget(f *testing.F, target harness.Target, seeds ...[]byte) {
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, data []byte) {
		tracker := harness.NewTracker()
		h := harness.New(target, harness.WithProbes(nil), harness.WithTracker(tracker))
		assert.Equal(t, 0, h.TestOneInput(data))
		assert.Empty(t, tracker.Outstanding())
	})
}

func FuzzCxxfilt(f *testing.F) {
	fuzzTarget(f, targets.Cxxfilt{}, []byte("_Z1fv"), []byte("_ZN3foo3barEi"), []byte("_ZSt4cout"))
}

func FuzzCMSTransform(f *testing.F) {
	fuzzTarget(f, targets.CMSTransform{},
		profileBytes(icc.ClassDisplay, icc.SpaceRGB),
		profileBytes(icc.ClassColorSpace, icc.SpaceLab),
		profileBytes(icc.ClassOutput, icc.SpaceCMYK),
	)
}

func FuzzXMLReader(f *testing.F) {
	fuzzTarget(f, targets.XMLReader{Fs: afero.NewMemMapFs()},
		readerInput(0, "", "<a x='1'><!--c--><b>t</b></a>"),
		readerInput(int32(xmlparse.Recover|xmlparse.NoEnt), "UTF-8", "<a>&amp;</a>"),
	)
}

func FuzzXMLDoc(f *testing.F) {
	fuzzTarget(f, targets.XMLDoc{}, []byte("<a/>"), []byte(`<?xml version="1.0"?><r><c>t</c></r>`))
}
