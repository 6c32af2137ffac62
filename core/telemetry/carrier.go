package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectPairs returns the trace context of ctx as flat key/value pairs, the
// shape grpc metadata.AppendToOutgoingContext expects.
func InjectPairs(ctx context.Context) []string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	pairs := make([]string, 0, 2*len(carrier))
	for _, k := range carrier.Keys() {
		pairs = append(pairs, k, carrier.Get(k))
	}
	return pairs
}
