package reflection

import (
	"strings"

	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/rpc"
)

// Resolve walks the dot-separated segments of path from root through container
// lookups and returns the final value. It reports false as soon as a segment is
// missing or a value on the way cannot be descended into. A nil root, or a nil
// *registry.Namespace, means registry.Default().
func Resolve(path string, root registry.Container) (any, bool) {
	if ns, ok := root.(*registry.Namespace); root == nil || ok && ns == nil {
		root = registry.Default()
	}

	var cur any = root
	for _, part := range strings.Split(path, ".") {
		c, ok := cur.(registry.Container)
		if !ok {
			return nil, false
		}
		if cur, ok = c.Get(part); !ok || cur == nil {
			return nil, false
		}
	}

	return cur, true
}

// ResolveMessage resolves path to a message type. Nothing at path yields
// (nil, nil); something that is not a message type yields a
// *TypeKindMismatchError.
func ResolveMessage(path string, root registry.Container) (MessageTypeLike, error) {
	v, ok := Resolve(path, root)
	if !ok {
		return nil, nil
	}

	mt, ok := v.(MessageTypeLike)
	if !ok {
		return nil, &TypeKindMismatchError{Path: path, Want: KindMessage}
	}

	return mt, nil
}

// ResolveService resolves path to a service instance. Registries usually hold
// service types rather than instances; a *rpc.ServiceType at path is a kind
// mismatch here, use ResolveServiceType for it.
func ResolveService(path string, root registry.Container) (ServiceLike, error) {
	v, ok := Resolve(path, root)
	if !ok {
		return nil, nil
	}

	svc, ok := v.(ServiceLike)
	if !ok {
		return nil, &TypeKindMismatchError{Path: path, Want: KindService}
	}

	return svc, nil
}

// ResolveServiceType resolves path to a service type, the class instances are
// created from. Instances found at path are accepted and their type returned.
func ResolveServiceType(path string, root registry.Container) (*rpc.ServiceType, error) {
	v, ok := Resolve(path, root)
	if !ok {
		return nil, nil
	}

	switch st := v.(type) {
	case *rpc.ServiceType:
		return st, nil
	case ServiceLike:
		return st.ServiceType(), nil
	default:
		return nil, &TypeKindMismatchError{Path: path, Want: KindService}
	}
}
