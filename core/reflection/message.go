package reflection

import (
	"reflect"

	"github.com/anoideaopen/pbreflect/core/scrape"
	"github.com/envoyproxy/protoc-gen-validate/validate"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// Field is one recovered message field.
type Field struct {
	Name string `json:"name" yaml:"name"`
	// ID is the 0-based position of the field in the metadata source.
	ID int `json:"id" yaml:"id"`
	// Type is the dotted type path as written in the source. It is not validated.
	Type     string `json:"type" yaml:"type"`
	Repeated bool   `json:"repeated,omitempty" yaml:"repeated,omitempty"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// ReflectedMessageType is a message type together with its recovered metadata.
type ReflectedMessageType struct {
	Type        MessageTypeLike   `json:"-" yaml:"-"`
	Name        string            `json:"name" yaml:"name"`
	NS          string            `json:"ns" yaml:"ns"`
	Fields      map[string]*Field `json:"-" yaml:"-"`
	FieldsArray []*Field          `json:"fields" yaml:"fields"`
}

// FullName returns NS.Name, or Name at the root.
func (m *ReflectedMessageType) FullName() string {
	if m.NS == "" {
		return m.Name
	}
	return m.NS + "." + m.Name
}

// ReflectMessageTypeFields recovers the fields of mt without caching. The
// descriptor is preferred; otherwise the fromObject source is scraped.
func ReflectMessageTypeFields(mt MessageTypeLike) []*Field {
	if d, ok := mt.(DescribedMessage); ok && d.Descriptor() != nil {
		return describedFields(d.Descriptor())
	}

	if s, ok := mt.(FromObjectSourcer); ok {
		return scrapedFields(s.FromObjectSource())
	}

	return make([]*Field, 0)
}

func scrapedFields(source string) []*Field {
	matches := scrape.Scrape(source, scrape.MessageFieldPattern)

	fields := make([]*Field, 0, len(matches))
	for _, m := range matches {
		fields = append(fields, &Field{
			Name: m[0],
			ID:   len(fields),
			Type: m[1],
		})
	}

	return fields
}

func describedFields(md protoreflect.MessageDescriptor) []*Field {
	fds := md.Fields()

	fields := make([]*Field, 0, fds.Len())
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		fields = append(fields, &Field{
			Name:     string(fd.Name()),
			ID:       i,
			Type:     fieldTypePath(fd),
			Repeated: fd.IsList(),
			Required: requiredByRules(fd),
		})
	}

	return fields
}

func fieldTypePath(fd protoreflect.FieldDescriptor) string {
	switch fd.Kind() {
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return string(fd.Message().FullName())
	case protoreflect.EnumKind:
		return string(fd.Enum().FullName())
	default:
		return fd.Kind().String()
	}
}

// requiredByRules reads (validate.rules).message.required.
func requiredByRules(fd protoreflect.FieldDescriptor) bool {
	rules, ok := proto.GetExtension(fd.Options(), validate.E_Rules).(*validate.FieldRules)
	return ok && rules.GetMessage().GetRequired()
}

func messageTypeName(mt MessageTypeLike) string {
	if n, ok := mt.(Named); ok {
		return n.Name()
	}
	if d, ok := mt.(DescribedMessage); ok && d.Descriptor() != nil {
		return string(d.Descriptor().Name())
	}
	return typeName(mt)
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
