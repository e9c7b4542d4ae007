/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reader.go
Description: Streaming pull reader over a file. Walks the document one node at a time and
reports libxml2-style node types, values and depths.
*/

package xmlparse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/spf13/afero"
)

// NodeType classifies the current reader node.
type NodeType int

const (
	NodeNone                  NodeType = 0
	NodeElement               NodeType = 1
	NodeText                  NodeType = 3
	NodeProcessingInstruction NodeType = 7
	NodeComment               NodeType = 8
	NodeDocumentType          NodeType = 10
	NodeSignificantWhitespace NodeType = 14
	NodeEndElement            NodeType = 15
)

func (n NodeType) String() string {
	switch n {
	case NodeNone:
		return "none"
	case NodeElement:
		return "element"
	case NodeText:
		return "text"
	case NodeProcessingInstruction:
		return "pi"
	case NodeComment:
		return "comment"
	case NodeDocumentType:
		return "doctype"
	case NodeSignificantWhitespace:
		return "whitespace"
	case NodeEndElement:
		return "end-element"
	}
	return fmt.Sprintf("node(%d)", int(n))
}

// Reader is a forward-only cursor over the nodes of one document.
type Reader struct {
	file    afero.File
	dec     *xml.Decoder
	opts    Options
	onError ErrorHandler
	probes  *gate.Table

	node    NodeType
	name    string
	value   string
	depth   int
	open    int
	sawRoot bool

	err    error
	done   bool
	closed bool
}

// Open opens name on fs and prepares a reader. encoding, when not empty,
// overrides the document's declared encoding. A nil probes disables every
// probe site.
func Open(fs afero.Fs, name, encoding string, opts Options, onError ErrorHandler, probes *gate.Table) (*Reader, error) {
	f, err := fs.Open(name)
	if err != nil {
		report(onError, err)
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	in, overridden, err := decodeInput(f, encoding, probes)
	if err != nil {
		f.Close()
		report(onError, err)
		return nil, err
	}
	return &Reader{
		file:    f,
		dec:     newDecoder(in, overridden, opts),
		opts:    opts,
		onError: onError,
		probes:  probes,
	}, nil
}

// Read advances to the next node. It returns false at the end of the
// document or after an error; the error is sticky.
func (r *Reader) Read() (bool, error) {
	if r.closed {
		return false, ErrClosed
	}
	if r.err != nil {
		return false, r.err
	}
	if r.done {
		return false, nil
	}

	for {
		tok, err := r.dec.Token()
		if errors.Is(err, io.EOF) {
			if r.probes.Guard(ProbeEmptyDocument, !r.sawRoot) {
				return false, r.fail(ErrEmptyDocument)
			}
			r.done = true
			r.node = NodeNone
			return false, nil
		}
		if err != nil {
			return false, r.fail(err)
		}
		ok, err := r.step(tok)
		if err != nil {
			return false, r.fail(err)
		}
		if ok {
			return true, nil
		}
	}
}

// step positions the reader on tok. It returns false for tokens that are not
// surfaced as nodes.
func (r *Reader) step(tok xml.Token) (bool, error) {
	r.depth = r.open
	r.name, r.value = "", ""

	switch t := tok.(type) {
	case xml.StartElement:
		if r.probes.Guard(ProbeDepth, r.open >= r.opts.depthLimit()) {
			return false, fmt.Errorf("%w: depth %d", ErrTooDeep, r.open)
		}
		r.sawRoot = true
		r.node = NodeElement
		r.name = qualified(t.Name)
		r.open++
	case xml.EndElement:
		r.open--
		r.depth = r.open
		r.node = NodeEndElement
		r.name = qualified(t.Name)
	case xml.CharData:
		if r.probes.Guard(ProbeTextLength, !r.opts.Has(Huge) && len(t) > maxTextLen) {
			return false, ErrTextTooLong
		}
		blank := strings.TrimSpace(string(t)) == ""
		if blank && (r.opts.Has(NoBlanks) || r.open == 0) {
			return false, nil
		}
		r.node = NodeText
		if blank {
			r.node = NodeSignificantWhitespace
		}
		r.value = string(t)
	case xml.Comment:
		r.node = NodeComment
		r.value = string(t)
	case xml.ProcInst:
		if t.Target == "xml" {
			return false, nil
		}
		r.node = NodeProcessingInstruction
		r.name = t.Target
		r.value = string(t.Inst)
	case xml.Directive:
		if !strings.HasPrefix(string(t), "DOCTYPE") {
			return false, nil
		}
		r.node = NodeDocumentType
		r.value = string(t)
	default:
		return false, nil
	}
	return true, nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	r.node = NodeNone
	report(r.onError, err)
	return err
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// NodeType returns the type of the current node.
func (r *Reader) NodeType() NodeType { return r.node }

// Name returns the qualified name of the current element or the target of
// a processing instruction.
func (r *Reader) Name() string { return r.name }

// Value returns the text carried by the current node. Elements have none.
func (r *Reader) Value() string { return r.value }

// Depth returns the nesting depth of the current node.
func (r *Reader) Depth() int { return r.depth }

// Close releases the reader and its file.
func (r *Reader) Close() error {
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	return r.file.Close()
}
