package descset

import (
	"fmt"

	"github.com/anoideaopen/pbreflect/core/registry"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// MessageType is a protobuf message type registered in a namespace tree.
// Nested message types are reachable through Get.
type MessageType struct {
	protoreflect.MessageType
	nested *registry.Namespace
}

// NewMessageType creates a dynamic message type for md and its nested messages.
// Map entry messages are skipped.
func NewMessageType(md protoreflect.MessageDescriptor) *MessageType {
	return wrapMessageType(dynamicpb.NewMessageType(md))
}

func wrapMessageType(mt protoreflect.MessageType) *MessageType {
	t := &MessageType{MessageType: mt, nested: registry.New()}

	msgs := mt.Descriptor().Messages()
	for i := 0; i < msgs.Len(); i++ {
		if md := msgs.Get(i); !md.IsMapEntry() {
			t.nested.Set(string(md.Name()), NewMessageType(md))
		}
	}

	return t
}

func (t *MessageType) Name() string {
	return string(t.Descriptor().Name())
}

// Get returns a nested message type.
func (t *MessageType) Get(name string) (any, bool) {
	return t.nested.Get(name)
}

// FromObject builds a message from a plain object using the protobuf JSON
// mapping. Unknown fields are rejected.
func (t *MessageType) FromObject(obj map[string]any) (any, error) {
	s, err := structpb.NewStruct(obj)
	if err != nil {
		return nil, fmt.Errorf("converting object: %w", err)
	}

	data, err := protojson.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("converting object: %w", err)
	}

	msg := t.New().Interface()
	if err = protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("converting object to %s: %w", t.Descriptor().FullName(), err)
	}

	return msg, nil
}
