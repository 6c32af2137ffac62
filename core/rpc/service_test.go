package rpc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/fixture"
	mockgrpc "github.com/anoideaopen/pbreflect/mocks/grpc"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type validatedString struct {
	*wrapperspb.StringValue
}

func (v validatedString) Validate() error {
	if v.GetValue() == "" {
		return errors.New("value is required")
	}
	return nil
}

func TestServiceTypeNames(t *testing.T) {
	st := rpc.NewServiceType("shop.v1.OrderService",
		rpc.PrototypeMethod{Name: rpc.ConstructorName},
		rpc.PrototypeMethod{Name: "placeOrder", Source: "function placeOrder() {}"},
	)

	require.Equal(t, "OrderService", st.Name())
	require.Equal(t, "shop.v1.OrderService", st.FullName())
	require.Nil(t, st.Descriptor())
	require.Len(t, st.Prototype(), 2)

	url, err := st.MethodURL("placeOrder")
	require.NoError(t, err)
	require.Equal(t, "/shop.v1.OrderService/PlaceOrder", url)
}

func TestDescribedServiceTypeMethodURL(t *testing.T) {
	st := rpc.NewDescribedServiceType(fixture.ShopFile().Services().ByName("OrderService"))

	require.Equal(t, "OrderService", st.Name())

	url, err := st.MethodURL("PlaceOrder")
	require.NoError(t, err)
	require.Equal(t, "/shop.v1.OrderService/PlaceOrder", url)

	url, err = st.MethodURL("watchOrders")
	require.NoError(t, err)
	require.Equal(t, "/shop.v1.OrderService/WatchOrders", url)

	_, err = st.MethodURL("cancelOrder")
	require.ErrorIs(t, err, rpc.ErrUnsupportedMethod)
}

func TestRPCCall(t *testing.T) {
	conn := mockgrpc.NewMockClientConn().
		Handle("/shop.v1.OrderService/PlaceOrder", func(req proto.Message) (proto.Message, error) {
			in := req.(*wrapperspb.StringValue)
			return wrapperspb.String("receipt for " + in.GetValue()), nil
		})

	svc := rpc.NewServiceType("shop.v1.OrderService").New(conn)

	resp := &wrapperspb.StringValue{}
	err := svc.RPCCall(context.Background(), "placeOrder", wrapperspb.String("order-1"), resp)
	require.NoError(t, err)
	require.Equal(t, "receipt for order-1", resp.GetValue())

	calls := conn.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "/shop.v1.OrderService/PlaceOrder", calls[0].Method)
	require.JSONEq(t, `"order-1"`, calls[0].Request)

	ids := calls[0].Metadata.Get(rpc.RequestIDHeader)
	require.Len(t, ids, 1)
	_, err = uuid.Parse(ids[0])
	require.NoError(t, err)
}

func TestRPCCallErrors(t *testing.T) {
	st := rpc.NewServiceType("shop.v1.OrderService")

	t.Run("no connection", func(t *testing.T) {
		err := st.New(nil).RPCCall(context.Background(), "placeOrder", wrapperspb.String("x"), &wrapperspb.StringValue{})
		require.ErrorIs(t, err, rpc.ErrNoConnection)
	})

	t.Run("invalid request", func(t *testing.T) {
		conn := mockgrpc.NewMockClientConn()
		req := validatedString{StringValue: wrapperspb.String("")}

		err := st.New(conn).RPCCall(context.Background(), "placeOrder", req, &wrapperspb.StringValue{})
		require.ErrorIs(t, err, rpc.ErrInvalidRequest)
		require.Empty(t, conn.Calls())
	})

	t.Run("transport error", func(t *testing.T) {
		conn := mockgrpc.NewMockClientConn()

		err := st.New(conn).RPCCall(context.Background(), "placeOrder", wrapperspb.String("x"), &wrapperspb.StringValue{})
		require.ErrorIs(t, err, mockgrpc.ErrNoHandler)
	})
}

func TestServiceConstructor(t *testing.T) {
	st := rpc.NewServiceType("shop.v1.OrderService")
	svc := st.New(nil)

	require.Same(t, st, svc.ServiceType())
	require.Equal(t, any(st), svc.Constructor())
}
