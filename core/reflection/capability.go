package reflection

import (
	"github.com/anoideaopen/pbreflect/core/rpc"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// MessageTypeLike is a message type: it can construct a message from a plain object.
type MessageTypeLike interface {
	FromObject(obj map[string]any) (any, error)
}

// ServiceLike is a service instance. Any struct embedding *rpc.Service satisfies it.
type ServiceLike interface {
	ServiceType() *rpc.ServiceType
}

// FromObjectSourcer exposes the generated source text of a message type's
// fromObject converter.
type FromObjectSourcer interface {
	FromObjectSource() string
}

// DescribedMessage exposes the protobuf descriptor of a message type.
type DescribedMessage interface {
	Descriptor() protoreflect.MessageDescriptor
}

// Named reports a runtime type name.
type Named interface {
	Name() string
}

// Constructed is implemented by instances that know the type definition they
// were created from.
type Constructed interface {
	Constructor() any
}
