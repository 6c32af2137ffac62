// Package rpc is the service base that generated service types build on.
//
// A ServiceType plays the part of a generated service class: it knows its full
// name and either the source text of its prototype methods or a protobuf service
// descriptor. Instances created with ServiceType.New embed the remote-call
// capability (Service.RPCCall) on top of a grpc client connection. Any struct
// embedding *Service is recognised as a service by the reflection package.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anoideaopen/pbreflect/core/logger"
	"github.com/anoideaopen/pbreflect/core/stringsx"
	"github.com/anoideaopen/pbreflect/core/telemetry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ConstructorName is the prototype key of the constructor. It is never a method.
const ConstructorName = "constructor"

// RequestIDHeader is the outgoing metadata key carrying a per-call request id.
const RequestIDHeader = "x-request-id"

var (
	// ErrNoConnection is returned when a service instance has no client connection.
	ErrNoConnection = errors.New("service has no client connection")

	// ErrUnsupportedMethod is returned when a described service has no such method.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrInvalidRequest is returned when a request fails its own validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// PrototypeMethod is a method defined on a generated service prototype.
type PrototypeMethod struct {
	Name   string
	Source string
}

// ServiceType is a generated service class.
type ServiceType struct {
	fullName  string
	prototype []PrototypeMethod
	desc      protoreflect.ServiceDescriptor
}

// NewServiceType creates a service type from its full name and the prototype
// methods in enumeration order.
func NewServiceType(fullName string, prototype ...PrototypeMethod) *ServiceType {
	return &ServiceType{
		fullName:  fullName,
		prototype: prototype,
	}
}

// NewDescribedServiceType creates a service type backed by a protobuf descriptor.
func NewDescribedServiceType(sd protoreflect.ServiceDescriptor) *ServiceType {
	return &ServiceType{
		fullName: string(sd.FullName()),
		desc:     sd,
	}
}

// Name returns the short type name, the last segment of the full name.
func (t *ServiceType) Name() string {
	return t.fullName[strings.LastIndex(t.fullName, ".")+1:]
}

// FullName returns the dotted full name.
func (t *ServiceType) FullName() string {
	return t.fullName
}

// Prototype returns a copy of the prototype methods in enumeration order.
func (t *ServiceType) Prototype() []PrototypeMethod {
	prototype := make([]PrototypeMethod, len(t.prototype))
	copy(prototype, t.prototype)
	return prototype
}

// Descriptor returns the service descriptor or nil for source-only types.
func (t *ServiceType) Descriptor() protoreflect.ServiceDescriptor {
	return t.desc
}

// New creates a service instance calling through conn.
func (t *ServiceType) New(conn grpc.ClientConnInterface) *Service {
	return &Service{
		typ:  t,
		conn: conn,
	}
}

// MethodURL returns the grpc method path for a method name. Prototype keys are
// lowerCamel ("placeOrder") while wire names are UpperCamel ("PlaceOrder").
func (t *ServiceType) MethodURL(method string) (string, error) {
	if t.desc == nil {
		return FullNameToURL(t.fullName + "." + stringsx.UpperFirstChar(method)), nil
	}

	md := t.desc.Methods().ByName(protoreflect.Name(method))
	if md == nil {
		md = t.desc.Methods().ByName(protoreflect.Name(stringsx.UpperFirstChar(method)))
	}
	if md == nil {
		return "", fmt.Errorf("%w: %s.%s", ErrUnsupportedMethod, t.fullName, method)
	}

	return FullNameToURL(string(md.FullName())), nil
}

// Service is an instance of a ServiceType.
type Service struct {
	typ  *ServiceType
	conn grpc.ClientConnInterface
}

// ServiceType returns the type the instance was created from.
func (s *Service) ServiceType() *ServiceType {
	if s == nil {
		return nil
	}
	return s.typ
}

// Constructor returns the type the instance was created from. Namespace searches
// use it to find instances by their type's registry entry.
func (s *Service) Constructor() any {
	if s == nil || s.typ == nil {
		return nil
	}
	return s.typ
}

// RPCCall invokes method with req and decodes the reply into resp.
//
// Requests implementing Validate() error are validated first. Every call
// carries a fresh request id and the current trace context as outgoing metadata.
func (s *Service) RPCCall(
	ctx context.Context,
	method string,
	req proto.Message,
	resp proto.Message,
	opts ...grpc.CallOption,
) error {
	if s == nil || s.conn == nil {
		return ErrNoConnection
	}

	url, err := s.typ.MethodURL(method)
	if err != nil {
		return err
	}

	if validator, ok := req.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}

	ctx, span := telemetry.StartSpan(ctx, url, telemetry.Kind(telemetry.EntityService))
	defer span.End()

	requestID := uuid.NewString()
	ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, requestID)
	if pairs := telemetry.InjectPairs(ctx); len(pairs) > 0 {
		ctx = metadata.AppendToOutgoingContext(ctx, pairs...)
	}

	logger.Logger().WithFields(logrus.Fields{
		"method":     url,
		"request_id": requestID,
	}).Debug("rpc call")

	if err := s.conn.Invoke(ctx, url, req, resp, opts...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("invoking %s: %w", url, err)
	}

	return nil
}
