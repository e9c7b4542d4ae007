/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: pattern.go
Description: Shapes of the checks a probe site can revert, as named in the dda.json site
list written next to each triage binary.
*/

package gate

// Pattern is the shape of the reverted check.
type Pattern string

const (
	CondAbort  Pattern = "COND_ABORT"  // the check returns early
	CondExec   Pattern = "COND_EXEC"   // the check guards a statement
	CondAssign Pattern = "COND_ASSIGN" // the check picks a value
)

// Patterns lists every pattern in report column order.
var Patterns = []Pattern{CondAbort, CondExec, CondAssign}

// Sites maps probe ids to the pattern of the check each one guards.
type Sites map[int]Pattern

// Merge returns a new map holding every site of s and others. Later maps win
// on shared ids.
func (s Sites) Merge(others ...Sites) Sites {
	merged := make(Sites, len(s))
	for id, p := range s {
		merged[id] = p
	}
	for _, o := range others {
		for id, p := range o {
			merged[id] = p
		}
	}
	return merged
}
