// Package output renders a finished model.Report.
//
// Three renderers share the same input:
//   - WriteJSON: indented JSON; decoding it with ReadJSON yields an equal Report
//   - Printer: the human-readable report, styled with lipgloss when the
//     destination is a terminal and plain text otherwise
//   - SpanExporter: one OpenTelemetry span per run with a child span per
//     process; findings are attached as span events
//
// Renderers never modify the report.
package output
