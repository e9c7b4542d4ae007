/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: logparse.go
Description: Parses probe log lines written by instrumented harnesses into the sets of
reached and triggered injection ids.
*/

package triage

import (
	"bufio"
	"bytes"
	"regexp"
	"sort"
	"strconv"
)

var (
	reachedRe   = regexp.MustCompile(`reached bug index (\d+)`)
	triggeredRe = regexp.MustCompile(`triggered bug index (\d+)`)
)

// ParseLog extracts reached and triggered ids from harness output. A
// triggered id is also reached. Both results are sorted and unique.
func ParseLog(output []byte) (reaches, triggers []int) {
	reached := make(map[int]struct{})
	triggered := make(map[int]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if m := reachedRe.FindSubmatch(line); m != nil {
			if id, err := strconv.Atoi(string(m[1])); err == nil {
				reached[id] = struct{}{}
			}
			continue
		}
		if m := triggeredRe.FindSubmatch(line); m != nil {
			if id, err := strconv.Atoi(string(m[1])); err == nil {
				reached[id] = struct{}{}
				triggered[id] = struct{}{}
			}
		}
	}
	return sortedKeys(reached), sortedKeys(triggered)
}

func sortedKeys(m map[int]struct{}) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
