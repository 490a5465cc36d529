// Package report rolls per-process results into the final Report.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrzor/claude-diagnose/internal/config"
	"github.com/mrzor/claude-diagnose/internal/model"
)

// Meta identifies one diagnosis run.
type Meta struct {
	RunID     string
	Timestamp time.Time
	Hostname  string
	OSVersion string
}

// NewMeta stamps a run with a fresh random identifier.
func NewMeta(now time.Time, hostname, osVersion string) Meta {
	return Meta{
		RunID:     uuid.NewString(),
		Timestamp: now,
		Hostname:  hostname,
		OSVersion: osVersion,
	}
}

// Build sums resource totals and promotes findings into the summary: every
// high-severity diagnosis becomes a critical issue and every medium one a
// warning, each prefixed with its PID. Promotion walks processes in order
// and, within a process, sample, descriptor, trace, then custom findings.
// Low-severity findings stay on their sub-result.
func Build(meta Meta, processes []model.ProcessReport, system model.SystemInfo, t config.Thresholds) model.Report {
	if processes == nil {
		processes = []model.ProcessReport{}
	}

	r := model.Report{
		RunID:        meta.RunID,
		Timestamp:    meta.Timestamp.Format(time.RFC3339),
		Hostname:     meta.Hostname,
		OSVersion:    meta.OSVersion,
		ProcessCount: len(processes),
		Processes:    processes,
		System:       system,
		Summary: model.Summary{
			CriticalIssues: []string{},
			Warnings:       []string{},
		},
	}

	for _, p := range processes {
		r.Summary.TotalCPU += p.CPU
		r.Summary.TotalMem += p.Mem
		r.Summary.TotalRSSMB += p.RSSMB

		for _, d := range Findings(p) {
			switch d.Severity {
			case model.SeverityHigh:
				r.Summary.CriticalIssues = append(r.Summary.CriticalIssues, fmt.Sprintf("PID %d: %s", p.PID, d.Issue))
			case model.SeverityMedium:
				r.Summary.Warnings = append(r.Summary.Warnings, fmt.Sprintf("PID %d: %s", p.PID, d.Issue))
			}
		}
	}

	if r.Summary.TotalCPU > t.AggregateCPU {
		r.Summary.CriticalIssues = append(r.Summary.CriticalIssues,
			fmt.Sprintf("Aggregate CPU usage (%.1f%%) exceeds single core", r.Summary.TotalCPU))
	}

	return r
}

// Finding sources.
const (
	SourceSample      = "sample"
	SourceDescriptors = "file_descriptors"
	SourceTrace       = "trace"
	SourceCustom      = "custom"
)

// Finding is a diagnosis tagged with the sub-result it came from.
type Finding struct {
	model.Diagnosis
	Source string
}

// Findings returns every diagnosis attached to p in promotion order.
func Findings(p model.ProcessReport) []Finding {
	var out []Finding
	add := func(source string, ds []model.Diagnosis) {
		for _, d := range ds {
			out = append(out, Finding{Diagnosis: d, Source: source})
		}
	}
	if p.Sample != nil {
		add(SourceSample, p.Sample.Diagnoses)
	}
	if p.FileDescriptors != nil {
		add(SourceDescriptors, p.FileDescriptors.Diagnoses)
	}
	if p.Trace != nil {
		add(SourceTrace, p.Trace.Diagnoses)
	}
	add(SourceCustom, p.Diagnoses)
	return out
}
