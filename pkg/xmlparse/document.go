/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: document.go
Description: In-memory document parsing on etree.
*/

package xmlparse

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/beevik/etree"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
)

// Document is a parsed XML tree.
type Document struct {
	URL string
	doc *etree.Document
}

// ReadMemory parses data as a complete document. url names the document in
// diagnostics. A document without a root element is an error.
func ReadMemory(data []byte, url, encoding string, opts Options, onError ErrorHandler, probes *gate.Table) (*Document, error) {
	in, overridden, err := decodeInput(bytes.NewReader(data), encoding, probes)
	if err != nil {
		report(onError, err)
		return nil, err
	}

	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = opts.Has(Recover)
	doc.ReadSettings.CharsetReader = charsetReader(overridden)
	if opts.Has(NoEnt) {
		doc.ReadSettings.Entity = xml.HTMLEntity
	}

	if _, err := doc.ReadFrom(in); err != nil {
		err = fmt.Errorf("%s: %w", url, err)
		report(onError, err)
		return nil, err
	}
	if probes.Guard(ProbeNoRoot, doc.Root() == nil) {
		err := fmt.Errorf("%s: %w", url, ErrEmptyDocument)
		report(onError, err)
		return nil, err
	}
	if limit := opts.depthLimit(); probes.Guard(ProbeDocumentDepth, exceedsDepth(doc.Root(), limit)) {
		err := fmt.Errorf("%s: %w: over %d", url, ErrTooDeep, limit)
		report(onError, err)
		return nil, err
	}
	return &Document{URL: url, doc: doc}, nil
}

func exceedsDepth(root *etree.Element, limit int) bool {
	type frame struct {
		e     *etree.Element
		depth int
	}
	stack := []frame{{root, 1}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > limit {
			return true
		}
		for _, c := range f.e.ChildElements() {
			stack = append(stack, frame{c, f.depth + 1})
		}
	}
	return false
}

// Root returns the document element, or nil after Free.
func (d *Document) Root() *etree.Element {
	if d.doc == nil {
		return nil
	}
	return d.doc.Root()
}

// Free releases the tree. Freeing twice returns ErrClosed.
func (d *Document) Free() error {
	if d.doc == nil {
		return ErrClosed
	}
	d.doc = nil
	return nil
}
