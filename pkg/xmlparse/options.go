/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: options.go
Description: Parser option bits, error reporting hook and shared decoder setup for the
streaming reader and the document parser.
*/

package xmlparse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"golang.org/x/net/html/charset"
)

// Options is a bit set of parser options. The bit values follow the
// libxml2 xmlParserOption numbering so raw fuzz integers map onto the same
// features; unknown bits are ignored.
type Options int32

const (
	// Recover keeps parsing after well-formedness errors.
	Recover Options = 1 << 0
	// NoEnt substitutes the predefined HTML entity set.
	NoEnt Options = 1 << 1
	// NoBlanks drops whitespace-only text nodes.
	NoBlanks Options = 1 << 8
	// Huge lifts the nesting and text size limits.
	Huge Options = 1 << 19
)

const (
	maxDepth     = 256
	maxHugeDepth = 2048
	maxTextLen   = 10_000_000
)

// Probe sites of the parser. The reader and the document parser share one
// numbering.
const (
	ProbeEncoding      = 0
	ProbeEmptyDocument = 1
	ProbeDepth         = 2
	ProbeTextLength    = 3
	ProbeNoRoot        = 4
	ProbeDocumentDepth = 5
)

// ReaderSites are evaluated by Reader, DocumentSites by ReadMemory.
var (
	ReaderSites = gate.Sites{
		ProbeEncoding:      gate.CondAbort,
		ProbeEmptyDocument: gate.CondAbort,
		ProbeDepth:         gate.CondAbort,
		ProbeTextLength:    gate.CondAbort,
	}
	DocumentSites = gate.Sites{
		ProbeEncoding:      gate.CondAbort,
		ProbeNoRoot:        gate.CondAbort,
		ProbeDocumentDepth: gate.CondAbort,
	}
)

var (
	ErrEmptyDocument = errors.New("xmlparse: document is empty")
	ErrTooDeep       = errors.New("xmlparse: excessive element nesting")
	ErrTextTooLong   = errors.New("xmlparse: text node exceeds size limit")
	ErrEncoding      = errors.New("xmlparse: unsupported encoding")
	ErrClosed        = errors.New("xmlparse: already closed")
)

// Has reports whether every bit of o2 is set.
func (o Options) Has(o2 Options) bool { return o&o2 == o2 }

func (o Options) depthLimit() int {
	if o.Has(Huge) {
		return maxHugeDepth
	}
	return maxDepth
}

func (o Options) String() string {
	var names []string
	for _, f := range []struct {
		bit  Options
		name string
	}{{Recover, "recover"}, {NoEnt, "noent"}, {NoBlanks, "noblanks"}, {Huge, "huge"}} {
		if o.Has(f.bit) {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ErrorHandler receives parser diagnostics.
type ErrorHandler func(msg string)

// Ignore discards diagnostics.
func Ignore(string) {}

func report(h ErrorHandler, err error) {
	if h != nil && err != nil {
		h(err.Error())
	}
}

// decodeInput applies an explicit encoding override to r. An empty label
// leaves r alone and lets the document's own declaration decide.
func decodeInput(r io.Reader, encoding string, probes *gate.Table) (io.Reader, bool, error) {
	if encoding == "" {
		return r, false, nil
	}
	dec, err := charset.NewReaderLabel(encoding, r)
	if probes.Guard(ProbeEncoding, err != nil) {
		return nil, false, fmt.Errorf("%w: %q", ErrEncoding, encoding)
	}
	return dec, true, nil
}

// charsetReader picks the charset hook for the decoder. When the input was
// already converted by an override, declarations are passed through.
func charsetReader(overridden bool) func(string, io.Reader) (io.Reader, error) {
	if overridden {
		return func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	}
	return charset.NewReaderLabel
}

func newDecoder(r io.Reader, overridden bool, opts Options) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.Strict = !opts.Has(Recover)
	d.CharsetReader = charsetReader(overridden)
	if opts.Has(NoEnt) {
		d.Entity = xml.HTMLEntity
	}
	return d
}
