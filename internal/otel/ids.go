package otel

import (
	"context"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type runTraceIDKey struct{}

// TraceIDFromRunID maps a run id to a trace id. A UUID run id is used
// byte-for-byte; anything else is hashed with SHA-256 and truncated to
// 16 bytes.
func TraceIDFromRunID(runID string) trace.TraceID {
	if u, err := uuid.Parse(runID); err == nil {
		return trace.TraceID(u)
	}
	sum := sha256.Sum256([]byte(runID))
	var id trace.TraceID
	copy(id[:], sum[:16])
	return id
}

// WithRunTraceID returns a context whose next root span uses the trace id
// derived from runID.
func WithRunTraceID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runTraceIDKey{}, TraceIDFromRunID(runID))
}

// IDGenerator hands out random span ids and honors a run trace id placed
// in the context by WithRunTraceID.
type IDGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

var _ sdktrace.IDGenerator = (*IDGenerator)(nil)

// NewIDGenerator returns an IDGenerator seeded from crypto/rand.
func NewIDGenerator() *IDGenerator {
	var seed int64
	_ = binary.Read(crand.Reader, binary.LittleEndian, &seed) //nolint:errcheck // zero seed is still usable
	return &IDGenerator{
		rnd: rand.New(rand.NewSource(seed)), //nolint:gosec // span ids are not secrets
	}
}

// NewIDs returns a trace id and root span id.
func (g *IDGenerator) NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	tid, ok := ctx.Value(runTraceIDKey{}).(trace.TraceID)
	if !ok || !tid.IsValid() {
		for !tid.IsValid() {
			_, _ = g.rnd.Read(tid[:])
		}
	}
	return tid, g.spanID()
}

// NewSpanID returns a span id for a child span of traceID.
func (g *IDGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.spanID()
}

func (g *IDGenerator) spanID() trace.SpanID {
	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = g.rnd.Read(sid[:])
	}
	return sid
}
