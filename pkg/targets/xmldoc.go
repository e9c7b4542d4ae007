/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: xmldoc.go
Description: In-memory XML document harness.
*/

package targets

import (
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
	"github.com/kleascm/fixreverter-harness/pkg/xmlparse"
)

const (
	xmlDocProbes = 5212

	// PlaceholderURL names every in-memory document.
	PlaceholderURL = "noname.xml"
)

// StageParse is reported when the document does not parse.
const StageParse = "parse"

// XMLDoc feeds inputs to the document parser.
type XMLDoc struct{}

func (XMLDoc) Name() string { return "xml" }
func (XMLDoc) Probes() int  { return xmlDocProbes }

func (XMLDoc) Sites() gate.Sites { return xmlparse.DocumentSites }

func (XMLDoc) Run(data []byte, env *harness.Env) harness.Result {
	doc, err := xmlparse.ReadMemory(data, PlaceholderURL, "", 0, xmlparse.Ignore, env.Probes)
	if err != nil {
		return harness.Reject(StageParse, err)
	}
	env.Resources.Acquire("document")
	root := doc.Root().Tag
	doc.Free()
	env.Resources.Release("document")
	return harness.Complete(root)
}
