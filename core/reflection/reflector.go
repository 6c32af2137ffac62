package reflection

import (
	"reflect"
	"sync"

	"github.com/anoideaopen/pbreflect/core/logger"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/sirupsen/logrus"
)

// Reflector caches reflected metadata in side tables keyed by type or instance
// identity. Metadata is computed outside the lock and the first stored result
// wins, so concurrent first calls may compute twice but always return the same
// pointer.
type Reflector struct {
	log logrus.FieldLogger

	mu       sync.Mutex
	messages map[any]*ReflectedMessageType
	services map[any]*ReflectedService
}

// NewReflector creates a reflector with empty side tables. A nil log uses the
// process logger.
func NewReflector(log logrus.FieldLogger) *Reflector {
	if log == nil {
		log = logger.Logger()
	}

	return &Reflector{
		log:      log,
		messages: make(map[any]*ReflectedMessageType),
		services: make(map[any]*ReflectedService),
	}
}

var (
	defaultReflector     *Reflector
	defaultReflectorOnce sync.Once
)

// Default returns the process-wide reflector used by the package functions.
func Default() *Reflector {
	defaultReflectorOnce.Do(func() {
		defaultReflector = NewReflector(nil)
	})
	return defaultReflector
}

// ReflectMessage reflects mt with the default reflector.
func ReflectMessage(mt MessageTypeLike, root *registry.Namespace) *ReflectedMessageType {
	return Default().Message(mt, root)
}

// ReflectService reflects svc with the default reflector.
func ReflectService(svc ServiceLike, root *registry.Namespace) *ReflectedService {
	return Default().Service(svc, root)
}

// Message returns the metadata of mt, computing it on first use. The root used
// on the first call determines NS; later calls return the cached result
// whatever root they pass. A nil root means registry.Default().
func (r *Reflector) Message(mt MessageTypeLike, root *registry.Namespace) *ReflectedMessageType {
	if mt == nil {
		return nil
	}
	if isNil(mt) {
		return &ReflectedMessageType{
			Type:        mt,
			Name:        typeName(mt),
			Fields:      make(map[string]*Field),
			FieldsArray: make([]*Field, 0),
		}
	}

	key, cacheable := identityKey(mt)
	if cacheable {
		r.mu.Lock()
		cached, ok := r.messages[key]
		r.mu.Unlock()
		if ok {
			return cached
		}
	}

	reflected := &ReflectedMessageType{
		Type:        mt,
		Name:        messageTypeName(mt),
		NS:          FindNS(mt, root),
		FieldsArray: ReflectMessageTypeFields(mt),
	}
	reflected.Fields = make(map[string]*Field, len(reflected.FieldsArray))
	for _, f := range reflected.FieldsArray {
		reflected.Fields[f.Name] = f
	}

	entry := r.log.WithFields(logrus.Fields{
		"message": reflected.FullName(),
		"fields":  len(reflected.FieldsArray),
	})
	if len(reflected.FieldsArray) == 0 {
		entry.Debug("no fields recovered")
	} else {
		entry.Debug("message reflected")
	}

	if !cacheable {
		return reflected
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.messages[key]; ok {
		return cached
	}
	r.messages[key] = reflected
	return reflected
}

// Service returns the metadata of svc, computing it on first use. Caching is
// per instance.
func (r *Reflector) Service(svc ServiceLike, root *registry.Namespace) *ReflectedService {
	if svc == nil {
		return nil
	}
	if isNil(svc) {
		return &ReflectedService{
			Service:      svc,
			Methods:      make(map[string]*Method),
			MethodsArray: make([]*Method, 0),
		}
	}

	key, cacheable := identityKey(svc)
	if cacheable {
		r.mu.Lock()
		cached, ok := r.services[key]
		r.mu.Unlock()
		if ok {
			return cached
		}
	}

	st := svc.ServiceType()

	reflected := &ReflectedService{
		Service:      svc,
		NS:           FindNS(svc, root),
		MethodsArray: ReflectServiceMethods(st),
	}
	if st != nil {
		reflected.Name = st.Name()
	}
	reflected.Methods = make(map[string]*Method, len(reflected.MethodsArray))
	for _, m := range reflected.MethodsArray {
		reflected.Methods[m.Name] = m
	}

	entry := r.log.WithFields(logrus.Fields{
		"service": reflected.FullName(),
		"methods": len(reflected.MethodsArray),
	})
	if len(reflected.MethodsArray) == 0 {
		entry.Debug("no methods recovered")
	} else {
		entry.Debug("service reflected")
	}

	if !cacheable {
		return reflected
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.services[key]; ok {
		return cached
	}
	r.services[key] = reflected
	return reflected
}

// Reset drops every cached entry. Types loaded afterwards get fresh metadata.
func (r *Reflector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = make(map[any]*ReflectedMessageType)
	r.services = make(map[any]*ReflectedService)
}

// identityKey returns v as a side-table key. Pointers are keyed by address;
// comparable values by their dynamic type and value. Values holding maps,
// slices or funcs have no identity and are reflected without caching.
func identityKey(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return v, true
	}
	if !rv.Comparable() {
		return nil, false
	}
	return v, true
}

// isNil reports whether v holds a nil pointer, map, slice, func or chan.
// Methods called on such values may dereference them.
func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
