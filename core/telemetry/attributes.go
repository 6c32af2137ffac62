package telemetry

import "go.opentelemetry.io/otel/attribute"

// EntityKind names the category of a reflected entity.
type EntityKind string

const (
	EntityMessage   EntityKind = "message"
	EntityService   EntityKind = "service"
	EntityNamespace EntityKind = "ns"
)

// Kind returns the entity kind attribute.
func Kind(k EntityKind) attribute.KeyValue {
	return attribute.String("pbreflect.kind", string(k))
}

// Path returns the registry path attribute.
func Path(path string) attribute.KeyValue {
	return attribute.String("pbreflect.path", path)
}

// Source returns the source file attribute.
func Source(source string) attribute.KeyValue {
	return attribute.String("pbreflect.source", source)
}
