package traceparse

import (
	"sort"
	"strings"

	"github.com/mrzor/claude-diagnose/internal/model"
)

const (
	// MaxWatchedPaths caps the watched-path list kept for display.
	MaxWatchedPaths = 50
	// MaxNetworkConnections caps the connection list kept for display.
	MaxNetworkConnections = 20
)

// Descriptors is the typed view of a descriptor listing.
type Descriptors struct {
	Total        int
	ByType       map[string]int
	WatchedPaths []string // sorted, capped at MaxWatchedPaths
	WatchedCount int      // distinct watched paths before capping
	Network      []model.NetworkConnection
}

type descriptorRow struct {
	Type    string
	Name    string
	Watched bool
	Network bool
}

type descriptorMatcher struct{}

// Match parses one listing row with at least nine fields.
func (descriptorMatcher) Match(line string) (descriptorRow, bool) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return descriptorRow{}, false
	}
	row := descriptorRow{
		Type: fields[4],
		Name: fields[len(fields)-1],
	}
	lower := strings.ToLower(line)
	row.Watched = strings.Contains(lower, "fsevents") || strings.Contains(lower, "kqueue")
	row.Network = row.Type == "IPv4" || row.Type == "IPv6" ||
		strings.Contains(line, "TCP") || strings.Contains(line, "UDP")
	return row, true
}

// ParseDescriptors tallies a descriptor listing. The header row, when
// present, is not counted; every other non-empty line counts towards Total.
func ParseDescriptors(text string) Descriptors {
	d := Descriptors{
		ByType:       make(map[string]int),
		WatchedPaths: []string{},
		Network:      []model.NetworkConnection{},
	}

	var m descriptorMatcher
	watched := make(map[string]struct{})
	for i, line := range lines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if i == 0 && strings.HasPrefix(strings.TrimSpace(line), "COMMAND") {
			continue
		}
		d.Total++

		row, ok := m.Match(line)
		if !ok {
			continue
		}
		d.ByType[row.Type]++
		if row.Watched {
			watched[row.Name] = struct{}{}
		}
		if row.Network && len(d.Network) < MaxNetworkConnections {
			d.Network = append(d.Network, model.NetworkConnection{Type: row.Type, Connection: row.Name})
		}
	}

	d.WatchedCount = len(watched)
	for p := range watched {
		d.WatchedPaths = append(d.WatchedPaths, p)
	}
	sort.Strings(d.WatchedPaths)
	if len(d.WatchedPaths) > MaxWatchedPaths {
		d.WatchedPaths = d.WatchedPaths[:MaxWatchedPaths]
	}
	return d
}
