/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: xmlreader.go
Description: Streaming XML reader harness. Splits the input into parser options, an
encoding hint and a document, writes the document to a temporary file and walks it with
the pull reader.
*/

package targets

import (
	"fmt"

	"github.com/kleascm/fixreverter-harness/pkg/fdp"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/xmlparse"
	"github.com/spf13/afero"
)

const (
	xmlReaderProbes = 4734

	// maxEncodingLen caps the encoding hint taken from the input.
	maxEncodingLen = 128
)

// Stages reported in rejected results.
const (
	StageTempFile   = "temp-file"
	StageOpenReader = "open-reader"
)

// XMLReader feeds inputs to the streaming reader.
type XMLReader struct {
	// Fs holds the temporary document. Nil means the OS filesystem.
	Fs afero.Fs
}

func (XMLReader) Name() string { return "xml_reader" }
func (XMLReader) Probes() int  { return xmlReaderProbes }

func (XMLReader) Sites() gate.Sites { return xmlparse.ReaderSites }

func (x XMLReader) fs() afero.Fs {
	if x.Fs == nil {
		return afero.NewOsFs()
	}
	return x.Fs
}

func (x XMLReader) Run(data []byte, env *harness.Env) harness.Result {
	provider := fdp.New(data)
	options := xmlparse.Options(provider.ConsumeInt32())
	encoding := provider.ConsumeRandomLengthString(maxEncodingLen)
	contents := provider.ConsumeRemainingBytes()

	fs := x.fs()
	name, err := writeTemp(fs, contents)
	if err != nil {
		return harness.Reject(StageTempFile, err)
	}
	env.Resources.Acquire("file")
	defer func() {
		fs.Remove(name)
		env.Resources.Release("file")
	}()

	reader, err := xmlparse.Open(fs, name, encoding, options, xmlparse.Ignore, env.Probes)
	if err != nil {
		return harness.Reject(StageOpenReader, err)
	}
	env.Resources.Acquire("reader")
	defer env.Resources.Release("reader")
	defer reader.Close()

	nodes := 0
	for {
		ok, err := reader.Read()
		if !ok {
			if err != nil {
				return harness.Result{Outcome: harness.Completed, Err: err, Detail: fmt.Sprintf("%d nodes", nodes)}
			}
			break
		}
		_ = reader.NodeType()
		_ = reader.Value()
		nodes++
	}
	return harness.Complete(fmt.Sprintf("%d nodes", nodes))
}

func writeTemp(fs afero.Fs, contents []byte) (string, error) {
	f, err := afero.TempFile(fs, "", "fuzz-*.xml")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(contents); err != nil {
		f.Close()
		fs.Remove(name)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}
