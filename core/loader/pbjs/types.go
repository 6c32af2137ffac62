package pbjs

import (
	"errors"
	"maps"

	"github.com/anoideaopen/pbreflect/core/registry"
)

// ErrNotObject is returned by FromObject for a nil object.
var ErrNotObject = errors.New("object expected")

// MessageType is a message class of a static module. Only what reflection needs
// is kept: the name, the fromObject converter source and nested types.
type MessageType struct {
	name       string
	fullName   string
	fromObject string
	nested     *registry.Namespace
}

// NewMessageType creates a message type with the given fromObject source.
func NewMessageType(fullName, fromObjectSource string) *MessageType {
	name := fullName
	for i := len(fullName) - 1; i >= 0; i-- {
		if fullName[i] == '.' {
			name = fullName[i+1:]
			break
		}
	}

	return &MessageType{
		name:       name,
		fullName:   fullName,
		fromObject: fromObjectSource,
		nested:     registry.New(),
	}
}

func (t *MessageType) Name() string     { return t.name }
func (t *MessageType) FullName() string { return t.fullName }

// FromObjectSource returns the text of the generated fromObject function.
func (t *MessageType) FromObjectSource() string { return t.fromObject }

// Get returns a nested type declared inside the message.
func (t *MessageType) Get(name string) (any, bool) { return t.nested.Get(name) }

// Nested returns the names of nested types in declaration order.
func (t *MessageType) Nested() []string { return t.nested.Keys() }

// FromObject creates a message holding a shallow copy of obj.
func (t *MessageType) FromObject(obj map[string]any) (any, error) {
	if obj == nil {
		return nil, ErrNotObject
	}

	return &Message{typ: t, Fields: maps.Clone(obj)}, nil
}

// Message is a plain-object message created by MessageType.FromObject.
type Message struct {
	typ    *MessageType
	Fields map[string]any
}

// Constructor returns the message type m was created from.
func (m *Message) Constructor() any {
	return m.typ
}
