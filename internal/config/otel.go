package config

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.opentelemetry.io/otel/attribute"
)

// OTELConfig selects where the spans of a diagnosis run are exported. It is
// read from the standard OTEL_* variables; with no endpoint set the run
// exports nothing.
type OTELConfig struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"claude-diagnose"`
	Attributes     string `env:"OTEL_RESOURCE_ATTRIBUTES"`
	Endpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	TracesEndpoint string `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
}

// LoadOTELConfig reads the span export settings from the environment.
func LoadOTELConfig() (*OTELConfig, error) {
	cfg, err := env.ParseAs[OTELConfig]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}
	return &cfg, nil
}

// Enabled reports whether spans should be exported at all.
func (c *OTELConfig) Enabled() bool {
	return c.TracesURL() != ""
}

// TracesURL returns the collector address for spans. The traces-specific
// variable wins over the shared one.
func (c *OTELConfig) TracesURL() string {
	return cmp.Or(c.TracesEndpoint, c.Endpoint)
}

// ResourceAttributes returns the key=value pairs of OTEL_RESOURCE_ATTRIBUTES
// in order. Pairs without '=' or with an empty key are dropped.
func (c *OTELConfig) ResourceAttributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for pair := range strings.SplitSeq(c.Attributes, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		attrs = append(attrs, attribute.String(key, strings.TrimSpace(value)))
	}
	return attrs
}
