package reflection_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/anoideaopen/pbreflect/core/reflection"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/fixture"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// sourceMessage is a message type known only by its generated fromObject text.
type sourceMessage struct {
	name   string
	source string
}

func (m *sourceMessage) Name() string             { return m.name }
func (m *sourceMessage) FromObjectSource() string { return m.source }
func (m *sourceMessage) FromObject(obj map[string]any) (any, error) {
	return obj, nil
}

// describedMessage is a message type backed by a protobuf descriptor.
type describedMessage struct {
	protoreflect.MessageType
}

func (m *describedMessage) FromObject(obj map[string]any) (any, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	msg := m.New().Interface()
	return msg, protojson.Unmarshal(raw, msg)
}

type orderClient struct {
	*rpc.Service
}

const orderFromObject = `function fromObject(object) {
    if (object instanceof $root.shop.Order)
        return object;
    var message = new $root.shop.Order();
    if (object.id != null)
        message.id = String(object.id);
    if (object.total != null) {
        if (typeof object.total !== "object")
            throw TypeError(".shop.Order.total: object expected");
        message.total = $root.common.Money.fromObject(object.total);
    }
    if (object.customer != null) {
        if (typeof object.customer !== "object")
            throw TypeError(".shop.Order.customer: object expected");
        message.customer = $root.shop.Customer.fromObject(object.customer);
    }
    return message;
}`

const moneyFromObject = `function fromObject(object) {
    if (object instanceof $root.common.Money)
        return object;
    var message = new $root.common.Money();
    if (object.currency != null)
        message.currency = String(object.currency);
    if (object.units != null)
        message.units = object.units | 0;
    return message;
}`

func newReflector(t *testing.T) (*reflection.Reflector, *logtest.Hook) {
	t.Helper()

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return reflection.NewReflector(log), hook
}

func TestFindNS(t *testing.T) {
	x := &sourceMessage{name: "M"}

	root := registry.New()
	root.SetPath("a.b.M", x)

	assert.Equal(t, "a.b", reflection.FindNS(x, root))
	assert.Equal(t, "", reflection.FindNS(&sourceMessage{name: "M"}, root))
	assert.Equal(t, "", reflection.FindNS(nil, root))
}

func TestFindNSTopLevel(t *testing.T) {
	x := &sourceMessage{name: "M"}

	root := registry.New()
	root.Set("M", x)

	assert.Equal(t, "", reflection.FindNS(x, root))
}

func TestFindNSFirstMatchWins(t *testing.T) {
	x := &sourceMessage{name: "M"}

	root := registry.New()
	root.SetPath("z.M", x)
	root.SetPath("a.M", x)

	assert.Equal(t, "z", reflection.FindNS(x, root))
}

func TestFindNSInstances(t *testing.T) {
	st := rpc.NewServiceType("shop.v1.OrderService")
	strType := (&wrapperspb.StringValue{}).ProtoReflect().Type()

	root := registry.New()
	root.SetPath("shop.v1.OrderService", st)
	root.SetPath("google.protobuf.StringValue", strType)

	t.Run("service instance", func(t *testing.T) {
		assert.Equal(t, "shop.v1", reflection.FindNS(st.New(nil), root))
	})

	t.Run("embedded service instance", func(t *testing.T) {
		assert.Equal(t, "shop.v1", reflection.FindNS(&orderClient{Service: st.New(nil)}, root))
	})

	t.Run("service type", func(t *testing.T) {
		assert.Equal(t, "shop.v1", reflection.FindNS(st, root))
	})

	t.Run("protobuf message", func(t *testing.T) {
		assert.Equal(t, "google.protobuf", reflection.FindNS(wrapperspb.String("x"), root))
	})

	t.Run("wrapped protobuf type", func(t *testing.T) {
		assert.Equal(t, "google.protobuf", reflection.FindNS(&describedMessage{MessageType: strType}, root))
	})
}

func TestFindNSIgnoresUncomparable(t *testing.T) {
	root := registry.New()
	root.SetPath("a.list", []string{"x"})
	root.SetPath("a.set", map[string]bool{})

	assert.NotPanics(t, func() {
		assert.Equal(t, "", reflection.FindNS([]string{"x"}, root))
	})
}

func TestResolve(t *testing.T) {
	x := &sourceMessage{name: "M"}

	root := registry.New()
	root.SetPath("a.b.M", x)

	v, ok := reflection.Resolve("a.b.M", root)
	require.True(t, ok)
	require.Same(t, x, v)

	_, ok = reflection.Resolve("a.x.M", root)
	require.False(t, ok)

	_, ok = reflection.Resolve("a.b.M.N", root)
	require.False(t, ok, "leaf without children")

	_, ok = reflection.Resolve("", root)
	require.False(t, ok)

	ns, ok := reflection.Resolve("a.b", root)
	require.True(t, ok)
	require.IsType(t, &registry.Namespace{}, ns)
}

func TestResolveMessage(t *testing.T) {
	x := &sourceMessage{name: "Order"}

	root := registry.New()
	root.SetPath("shop.Order", x)
	root.SetPath("shop.OrderService", rpc.NewServiceType("shop.OrderService"))

	mt, err := reflection.ResolveMessage("shop.Order", root)
	require.NoError(t, err)
	require.Same(t, x, mt)

	mt, err = reflection.ResolveMessage("shop.Missing", root)
	require.NoError(t, err)
	require.Nil(t, mt)

	_, err = reflection.ResolveMessage("shop.OrderService", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch)
	require.Contains(t, err.Error(), "shop.OrderService")

	var mismatch *reflection.TypeKindMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, "shop.OrderService", mismatch.Path)
	require.Equal(t, reflection.KindMessage, mismatch.Want)

	_, err = reflection.ResolveMessage("shop", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch, "namespace is not a message")
}

func TestResolveService(t *testing.T) {
	st := rpc.NewServiceType("shop.OrderService")
	client := &orderClient{Service: st.New(nil)}

	root := registry.New()
	root.SetPath("shop.OrderService", st)
	root.SetPath("shop.orderClient", client)
	root.SetPath("shop.Order", &sourceMessage{name: "Order"})

	svc, err := reflection.ResolveService("shop.orderClient", root)
	require.NoError(t, err)
	require.Same(t, client, svc)

	svc, err = reflection.ResolveService("shop.Nothing", root)
	require.NoError(t, err)
	require.Nil(t, svc)

	_, err = reflection.ResolveService("shop.Order", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch)

	_, err = reflection.ResolveService("shop.OrderService", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch, "a service type is not an instance")

	got, err := reflection.ResolveServiceType("shop.OrderService", root)
	require.NoError(t, err)
	require.Same(t, st, got)

	got, err = reflection.ResolveServiceType("shop.orderClient", root)
	require.NoError(t, err)
	require.Same(t, st, got)

	_, err = reflection.ResolveServiceType("shop.Order", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch)
}

func TestReflectMessageScraped(t *testing.T) {
	r, _ := newReflector(t)

	order := &sourceMessage{name: "Order", source: orderFromObject}
	root := registry.New()
	root.SetPath("shop.Order", order)

	reflected := r.Message(order, root)

	require.Equal(t, "Order", reflected.Name)
	require.Equal(t, "shop", reflected.NS)
	require.Equal(t, "shop.Order", reflected.FullName())
	require.Equal(t, []*reflection.Field{
		{Name: "total", ID: 0, Type: "common.Money"},
		{Name: "customer", ID: 1, Type: "shop.Customer"},
	}, reflected.FieldsArray)
	require.Same(t, reflected.FieldsArray[1], reflected.Fields["customer"])
	require.NotContains(t, reflected.Fields, "id", "scalar fields are not recoverable from source")
}

func TestReflectMessageWithoutNestedFields(t *testing.T) {
	r, hook := newReflector(t)

	money := &sourceMessage{name: "Money", source: moneyFromObject}
	reflected := r.Message(money, registry.New())

	require.NotNil(t, reflected.FieldsArray)
	require.Empty(t, reflected.FieldsArray)
	require.Empty(t, reflected.Fields)
	require.Equal(t, "", reflected.NS)
	require.Equal(t, "no fields recovered", hook.LastEntry().Message)
}

func TestReflectMessageIsIdempotent(t *testing.T) {
	r, _ := newReflector(t)

	order := &sourceMessage{name: "Order", source: orderFromObject}
	root := registry.New()
	root.SetPath("shop.Order", order)

	first := r.Message(order, root)
	second := r.Message(order, registry.New())

	require.Same(t, first, second)
	require.Len(t, second.FieldsArray, 2)
	require.Equal(t, "shop", second.NS, "the first root decides the namespace")

	r.Reset()
	require.NotSame(t, first, r.Message(order, root))
}

func TestReflectMessageDescribed(t *testing.T) {
	r, _ := newReflector(t)

	order := &describedMessage{
		MessageType: dynamicpb.NewMessageType(fixture.ShopFile().Messages().ByName("Order")),
	}
	root := registry.New()
	root.SetPath("shop.v1.Order", order)

	reflected := r.Message(order, root)

	require.Equal(t, "Order", reflected.Name)
	require.Equal(t, "shop.v1", reflected.NS)
	require.Equal(t, []*reflection.Field{
		{Name: "id", ID: 0, Type: "string"},
		{Name: "customer", ID: 1, Type: "shop.v1.Customer", Required: true},
		{Name: "total", ID: 2, Type: "shop.v1.Money"},
		{Name: "tags", ID: 3, Type: "string", Repeated: true},
	}, reflected.FieldsArray)
}

func TestReflectMessageWithoutMetadata(t *testing.T) {
	r, _ := newReflector(t)

	reflected := r.Message(plainType{}, nil)

	require.Equal(t, "plainType", reflected.Name)
	require.Empty(t, reflected.FieldsArray)
}

type plainType struct{}

func (plainType) FromObject(obj map[string]any) (any, error) { return obj, nil }

func TestReflectService(t *testing.T) {
	r, _ := newReflector(t)

	st := rpc.NewServiceType("shop.OrderService",
		rpc.PrototypeMethod{
			Name:   rpc.ConstructorName,
			Source: "function OrderService(rpcImpl) {\n    return this.rpcCall(OrderService, $root.x.A, $root.x.B, a, b);\n}",
		},
		rpc.PrototypeMethod{
			Name: "describe",
			Source: `function describe() {
    return "OrderService";
}`,
		},
		rpc.PrototypeMethod{
			Name: "placeOrder",
			Source: `function placeOrder(request, callback) {
    return this.rpcCall(placeOrder, $root.shop.Order, $root.shop.Receipt, request, callback);
}`,
		},
	)
	root := registry.New()
	root.SetPath("shop.OrderService", st)

	svc := st.New(nil)
	reflected := r.Service(svc, root)

	require.Equal(t, "OrderService", reflected.Name)
	require.Equal(t, "shop", reflected.NS)
	require.Equal(t, []*reflection.Method{{
		Name:         "placeOrder",
		Kind:         reflection.MethodKindRPC,
		RequestType:  "shop.Order",
		ResponseType: "shop.Receipt",
	}}, reflected.MethodsArray)
	require.Same(t, reflected.MethodsArray[0], reflected.Methods["placeOrder"])

	require.Same(t, reflected, r.Service(svc, root))
}

func TestReflectServiceKeepsPrototypeOrder(t *testing.T) {
	r, _ := newReflector(t)

	method := func(name, req, res string) rpc.PrototypeMethod {
		return rpc.PrototypeMethod{
			Name:   name,
			Source: "function " + name + "(request, callback) {\n    return this.rpcCall(" + name + ", $root." + req + ", $root." + res + ", request, callback);\n}",
		}
	}

	st := rpc.NewServiceType("shop.OrderService",
		method("zeta", "shop.Z", "shop.Z"),
		method("alpha", "shop.A", "shop.A"),
	)

	reflected := r.Service(st.New(nil), nil)

	require.Len(t, reflected.MethodsArray, 2)
	require.Equal(t, "zeta", reflected.MethodsArray[0].Name)
	require.Equal(t, "alpha", reflected.MethodsArray[1].Name)
	require.Equal(t, "", reflected.NS)
}

func TestReflectServiceDescribed(t *testing.T) {
	r, _ := newReflector(t)

	st := rpc.NewDescribedServiceType(fixture.ShopFile().Services().ByName("OrderService"))
	reflected := r.Service(&orderClient{Service: st.New(nil)}, nil)

	require.Equal(t, "OrderService", reflected.Name)
	require.Equal(t, []*reflection.Method{
		{
			Name:         "PlaceOrder",
			Kind:         reflection.MethodKindRPC,
			RequestType:  "shop.v1.Order",
			ResponseType: "shop.v1.Receipt",
		},
		{
			Name:           "WatchOrders",
			Kind:           reflection.MethodKindRPC,
			RequestType:    "shop.v1.Order",
			ResponseType:   "shop.v1.Receipt",
			ResponseStream: true,
		},
	}, reflected.MethodsArray)
}

func TestReflectServicePerInstance(t *testing.T) {
	r, _ := newReflector(t)

	st := rpc.NewServiceType("shop.OrderService")
	a, b := st.New(nil), st.New(nil)

	require.NotSame(t, r.Service(a, nil), r.Service(b, nil))
	require.Same(t, r.Service(a, nil), r.Service(a, nil))
}

func TestPackageFunctionsUseDefaultReflector(t *testing.T) {
	order := &sourceMessage{name: "Order", source: orderFromObject}

	first := reflection.ReflectMessage(order, nil)
	require.Same(t, first, reflection.ReflectMessage(order, nil))
	require.Same(t, first, reflection.Default().Message(order, nil))

	svc := rpc.NewServiceType("shop.OrderService").New(nil)
	require.Same(t, reflection.ReflectService(svc, nil), reflection.Default().Service(svc, nil))
}

// nameMap is a container that is not a registry namespace.
type nameMap map[string]any

func (m nameMap) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func TestResolveThroughContainer(t *testing.T) {
	x := &sourceMessage{name: "Order"}
	nested := registry.New().Set("Order", x)
	root := nameMap{"shop": nested, "plain": plainType{}}

	v, ok := reflection.Resolve("shop.Order", root)
	require.True(t, ok)
	require.Same(t, x, v)

	mt, err := reflection.ResolveMessage("shop.Order", root)
	require.NoError(t, err)
	require.Same(t, x, mt)

	_, err = reflection.ResolveService("plain", root)
	require.ErrorIs(t, err, reflection.ErrTypeKindMismatch)
}

func TestResolveNilNamespaceUsesDefault(t *testing.T) {
	x := &sourceMessage{name: "Order"}
	registry.Default().SetPath("resolvedefault.Order", x)

	var ns *registry.Namespace
	v, ok := reflection.Resolve("resolvedefault.Order", ns)
	require.True(t, ok)
	require.Same(t, x, v)

	v, ok = reflection.Resolve("resolvedefault.Order", nil)
	require.True(t, ok)
	require.Same(t, x, v)
}

func TestReflectTypedNil(t *testing.T) {
	r, _ := newReflector(t)

	root := registry.New()
	root.SetPath("shop.Order", &sourceMessage{name: "Order", source: orderFromObject})

	var mt *sourceMessage
	var svc *orderClient

	require.NotPanics(t, func() {
		m := r.Message(mt, root)
		require.Equal(t, "sourceMessage", m.Name)
		require.Empty(t, m.NS)
		require.Empty(t, m.FieldsArray)
		require.NotNil(t, m.Fields)

		s := r.Service(svc, root)
		require.Empty(t, s.MethodsArray)
		require.NotNil(t, s.Methods)

		require.Equal(t, "", reflection.FindNS(svc, root))
	})

	require.Nil(t, r.Message(nil, root))
	require.Nil(t, r.Service(nil, root))
}

func TestReflectMessageCachesValueTypes(t *testing.T) {
	r, _ := newReflector(t)

	first := r.Message(plainType{}, nil)
	require.Same(t, first, r.Message(plainType{}, nil))
}

// uncomparableType cannot be a map key.
type uncomparableType struct {
	fields []string
}

func (uncomparableType) FromObject(obj map[string]any) (any, error) { return obj, nil }

func TestReflectMessageWithoutIdentity(t *testing.T) {
	r, _ := newReflector(t)

	mt := uncomparableType{fields: []string{"id"}}

	require.NotPanics(t, func() {
		require.NotSame(t, r.Message(mt, nil), r.Message(mt, nil))
	})
}
