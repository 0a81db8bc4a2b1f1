// Package stacktrace trims goroutine dumps down to this module's own frames.
package stacktrace

import (
	"bufio"
	"bytes"
	"strings"
)

const marker = "/internal/"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of
// debug.Stack output that points into an internal package, outermost last.
func InternalPaths(stack []byte) []string {
	var out []string

	sc := bufio.NewScanner(bytes.NewReader(stack))
	for sc.Scan() {
		line := sc.Text()
		// file lines are tab-indented; function lines are not
		if !strings.HasPrefix(line, "\t") {
			continue
		}

		loc, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		idx := strings.Index(loc, marker)
		if idx < 0 || !strings.Contains(loc, ".go:") {
			continue
		}

		out = append(out, loc[idx+1:])
	}

	return out
}
