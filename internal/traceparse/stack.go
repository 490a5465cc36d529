package traceparse

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// MaxHotFunctions caps the hot-function list of a stack sample.
const MaxHotFunctions = 20

var (
	threadCountRe = regexp.MustCompile(`(\d+)\s+threads?`)
	// a bracketed selector "+[...]" or a qualified call "ns::fn(", whichever
	// starts first; a selector swallows any call inside it
	functionRe = regexp.MustCompile(`\+\[([^\]\n]*)\]|(\w+::\w+)\s*\(`)
)

// StackSample is the typed view of a stack-sampler report.
type StackSample struct {
	ThreadCount  int
	HotFunctions []model.HotFunction
}

// hotFunctionMatcher finds function identifiers on one sample line.
type hotFunctionMatcher struct{}

// Match returns every identifier on the line longer than three characters,
// in line order. Each token counts once.
func (hotFunctionMatcher) Match(line string) ([]string, bool) {
	var names []string
	for _, m := range functionRe.FindAllStringSubmatch(line, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if len(name) > 3 {
			names = append(names, name)
		}
	}
	return names, len(names) > 0
}

// ParseStackSample extracts the thread count and the most frequent function
// identifiers from sampler output.
func ParseStackSample(text string) StackSample {
	var s StackSample
	if m := threadCountRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.ThreadCount = n
		}
	}

	var matcher hotFunctionMatcher
	counts := make(map[string]int)
	for _, line := range lines(text) {
		names, ok := matcher.Match(line)
		if !ok {
			continue
		}
		for _, name := range names {
			counts[name]++
		}
	}

	s.HotFunctions = make([]model.HotFunction, 0, len(counts))
	for name, n := range counts {
		s.HotFunctions = append(s.HotFunctions, model.HotFunction{Function: name, Samples: n})
	}
	sort.Slice(s.HotFunctions, func(i, j int) bool {
		a, b := s.HotFunctions[i], s.HotFunctions[j]
		if a.Samples != b.Samples {
			return a.Samples > b.Samples
		}
		return a.Function < b.Function
	})
	if len(s.HotFunctions) > MaxHotFunctions {
		s.HotFunctions = s.HotFunctions[:MaxHotFunctions]
	}
	return s
}
