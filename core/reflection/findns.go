package reflection

import (
	"reflect"

	"github.com/anoideaopen/pbreflect/core/registry"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// FindNS returns the dotted path of the namespace holding target in root, or ""
// when target is not reachable. A nil root means registry.Default().
//
// Entries are visited depth-first in insertion order and the first match wins.
// An entry matches when it is the type target was constructed from (instances)
// or when it is target itself (type definitions). Only nested namespaces are
// descended into.
func FindNS(target any, root *registry.Namespace) string {
	if target == nil || isNil(target) {
		return ""
	}
	if root == nil {
		root = registry.Default()
	}

	path, _ := findNS(target, root, "")
	return path
}

func findNS(target any, ns *registry.Namespace, path string) (string, bool) {
	var (
		res   string
		found bool
	)

	ns.Range(func(name string, entry any) bool {
		switch {
		case constructedBy(target, entry), sameEntity(entry, target), sameProtoType(entry, target):
			res, found = path, true
		default:
			if child, ok := entry.(*registry.Namespace); ok {
				res, found = findNS(target, child, registry.Join(path, name))
			}
		}
		return !found
	})

	return res, found
}

// constructedBy reports whether entry is the type target is an instance of.
func constructedBy(target, entry any) bool {
	switch t := target.(type) {
	case Constructed:
		return sameEntity(entry, t.Constructor())
	case proto.Message:
		mt, ok := entry.(protoreflect.MessageType)
		return ok && mt.Descriptor().FullName() == t.ProtoReflect().Descriptor().FullName()
	}
	return false
}

// sameProtoType matches two protobuf message types by full name. Wrappers
// around a generated type and the generated type itself are the same type.
func sameProtoType(entry, target any) bool {
	a, ok := entry.(protoreflect.MessageType)
	if !ok {
		return false
	}
	b, ok := target.(protoreflect.MessageType)
	if !ok {
		return false
	}
	return a.Descriptor().FullName() == b.Descriptor().FullName()
}

// sameEntity compares by identity. Values of uncomparable types never match.
func sameEntity(a, b any) (same bool) {
	if a == nil || b == nil {
		return false
	}

	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}

	defer func() {
		if recover() != nil {
			same = false
		}
	}()

	return a == b
}
