package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ErrNoHandler is returned for calls to a method without a registered handler.
var ErrNoHandler = errors.New("no handler registered")

// Handler answers one unary call.
type Handler func(req proto.Message) (proto.Message, error)

// Call is a recorded unary call.
type Call struct {
	Method   string
	Request  string // protojson
	Metadata metadata.MD
}

// MockClientConn is a grpc.ClientConnInterface that records unary calls and
// answers them from registered handlers.
type MockClientConn struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

func NewMockClientConn() *MockClientConn {
	return &MockClientConn{
		handlers: make(map[string]Handler),
	}
}

// Handle registers h for a method path such as "/shop.OrderService/PlaceOrder".
func (m *MockClientConn) Handle(method string, h Handler) *MockClientConn {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[method] = h
	return m
}

// Calls returns the recorded calls in order.
func (m *MockClientConn) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Invoke performs a unary RPC and returns after the response is received into reply.
func (m *MockClientConn) Invoke(ctx context.Context, method string, args interface{}, reply interface{}, _ ...grpc.CallOption) error {
	req, ok := args.(proto.Message)
	if !ok {
		panic("only proto messages are supported")
	}

	rawJSON, err := protojson.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshalling request: %w", err)
	}

	md, _ := metadata.FromOutgoingContext(ctx)

	m.mu.Lock()
	m.calls = append(m.calls, Call{Method: method, Request: string(rawJSON), Metadata: md})
	h, ok := m.handlers[method]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNoHandler, method)
	}

	resp, err := h(req)
	if err != nil {
		return err
	}

	out, ok := reply.(proto.Message)
	if !ok {
		panic("only proto messages are supported")
	}

	proto.Reset(out)
	proto.Merge(out, resp)
	return nil
}

// NewStream begins a streaming RPC.
func (m *MockClientConn) NewStream(_ context.Context, _ *grpc.StreamDesc, _ string, _ ...grpc.CallOption) (grpc.ClientStream, error) {
	panic("streaming methods are not supported")
}
