/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: cxxfilt.go
Description: Demangler harness. Frames the input as a NUL-terminated name and hands it to
the C++ symbol demangler, mirroring what c++filt does for a single symbol.
*/

package targets

import (
	"bytes"
	"errors"

	"github.com/ianlancetaylor/demangle"
	"github.com/kleascm/fixreverter-harness/pkg/gate"
	"github.com/kleascm/fixreverter-harness/pkg/harness"
)

const (
	cxxfiltProbes = 11895

	// maxSymbolLen is the size of the symbol work buffer, as in c++filt.
	maxSymbolLen = 32767
)

// Probe sites on the demangle path.
const (
	ProbeSymbolLength  = 0
	ProbeDemangleError = 1
)

var cxxfiltSites = gate.Sites{
	ProbeSymbolLength:  gate.CondAbort,
	ProbeDemangleError: gate.CondAbort,
}

// ErrSymbolTooLong is returned for symbols that do not fit the work buffer.
var ErrSymbolTooLong = errors.New("symbol exceeds work buffer")

// Cxxfilt feeds inputs to the symbol demangler.
type Cxxfilt struct{}

func (Cxxfilt) Name() string { return "cxxfilt" }
func (Cxxfilt) Probes() int  { return cxxfiltProbes }

func (Cxxfilt) Sites() gate.Sites { return cxxfiltSites }

// Terminate copies data into a buffer one byte longer and appends NUL.
func Terminate(data []byte) []byte {
	buf := make([]byte, len(data)+1)
	copy(buf, data)
	return buf
}

// CString returns the text of buf up to its first NUL.
func CString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

func (Cxxfilt) Run(data []byte, env *harness.Env) harness.Result {
	buf := Terminate(data)
	env.Resources.Acquire("buffer")
	defer env.Resources.Release("buffer")

	mangled := CString(buf)
	name, err := Demangle(mangled, env.Probes)
	if err != nil {
		// c++filt echoes names it cannot demangle.
		return harness.Result{Outcome: harness.Completed, Err: err, Detail: mangled}
	}
	return harness.Complete(name)
}

// Demangle expands one symbol. The symbol is staged in a fixed work buffer
// first; longer symbols and names the demangler rejects return an error.
func Demangle(mangled string, probes *gate.Table) (string, error) {
	var work [maxSymbolLen]byte
	if probes.Guard(ProbeSymbolLength, len(mangled) > len(work)) {
		return "", ErrSymbolTooLong
	}
	for i := 0; i < len(mangled); i++ {
		work[i] = mangled[i]
	}

	ast, err := demangle.ToAST(string(work[:len(mangled)]))
	if probes.Guard(ProbeDemangleError, err != nil) {
		return "", err
	}
	return demangle.ASTToString(ast), nil
}
