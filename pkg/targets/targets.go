/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: targets.go
Description: Registry of the harness targets built into this repository.
*/

package targets

import (
	"fmt"
	"sort"

	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
)

// Probe slot counts follow the FIXREVERTER injection counts of the FuzzBench
// builds of binutils c++filt, lcms and libxml2, so probe settings and crash
// sets recorded against those benchmarks keep their ids. Only the low ids
// wired into the Go libraries (pkg/icc, pkg/cms, pkg/xmlparse and Demangle)
// are ever evaluated; the remaining slots parse but never log.

// All returns every target, sorted by name.
func All() []harness.Target {
	all := []harness.Target{Cxxfilt{}, CMSTransform{}, XMLReader{}, XMLDoc{}}
	sort.Slice(all, func(i, j int) bool { return all[i].Name() < all[j].Name() })
	return all
}

// Lookup finds a target by name.
func Lookup(name string) (harness.Target, error) {
	for _, t := range All() {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown target %q", name)
}

// Sited is implemented by targets that publish their probe sites.
type Sited interface {
	Sites() gate.Sites
}

// SitesOf returns the probe sites of t, or nil when it publishes none.
func SitesOf(t harness.Target) gate.Sites {
	if s, ok := t.(Sited); ok {
		return s.Sites()
	}
	return nil
}
