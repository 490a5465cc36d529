package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mrzor/claude-diagnose/internal/model"
)

// NoProcessesError is the JSON body printed when no candidate process exists.
const NoProcessesError = "No Claude Code CLI processes found"

// WriteJSON writes r as indented JSON followed by a newline.
func WriteJSON(w io.Writer, r model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(rd io.Reader) (model.Report, error) {
	var r model.Report
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return model.Report{}, fmt.Errorf("failed to decode report: %w", err)
	}
	return r, nil
}

// WriteNoProcessesJSON writes the empty-result error object.
func WriteNoProcessesJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]string{"error": NoProcessesError})
}
