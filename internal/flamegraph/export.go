package flamegraph

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// Artifacts are the two files written for one process.
type Artifacts struct {
	Folded string
	SVG    string
}

// Paths derives the artifact paths from the requested output path. When
// several processes are exported each gets its PID appended to the base.
func Paths(outputPath string, pid int, multi bool) Artifacts {
	base := strings.TrimSuffix(outputPath, filepath.Ext(outputPath))
	if multi {
		base = fmt.Sprintf("%s-%d", base, pid)
	}
	return Artifacts{
		Folded: base + ".folded",
		SVG:    base + ".svg",
	}
}

// Export writes the folded stacks and the rendered SVG for one trace.
func Export(pid int, trace model.TraceResult, outputPath string, multi bool) (Artifacts, error) {
	paths := Paths(outputPath, pid, multi)
	stacks := Stacks(pid, trace)

	if err := os.WriteFile(paths.Folded, []byte(foldedText(stacks)), 0o644); err != nil { //nolint:gosec // artifacts are meant to be shared
		return Artifacts{}, fmt.Errorf("failed to write folded stacks: %w", err)
	}

	var svg bytes.Buffer
	title := fmt.Sprintf("Syscall flame graph, PID %d (%s, %ds)", pid, trace.Method, trace.DurationSeconds)
	if err := RenderSVG(&svg, title, stacks); err != nil {
		return Artifacts{}, fmt.Errorf("failed to render flame graph: %w", err)
	}
	if err := os.WriteFile(paths.SVG, svg.Bytes(), 0o644); err != nil { //nolint:gosec // artifacts are meant to be shared
		return Artifacts{}, fmt.Errorf("failed to write flame graph: %w", err)
	}

	return paths, nil
}
