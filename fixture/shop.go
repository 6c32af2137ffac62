// Package fixture builds a small protobuf schema in memory for tests and examples:
//
//	package shop.v1;
//
//	message Money    { string currency = 1; int64 units = 2; }
//	message Customer { message Address { string city = 1; } string name = 1; Address address = 2; }
//	message Order    { string id = 1; Customer customer = 2 [(validate.rules).message.required = true];
//	                   Money total = 3; repeated string tags = 4; }
//	message Receipt  { string order_id = 1; Money charged = 2; }
//
//	service OrderService {
//	  rpc PlaceOrder(Order) returns (Receipt);
//	  rpc WatchOrders(Order) returns (stream Receipt);
//	}
package fixture

import (
	"sync"

	"github.com/envoyproxy/protoc-gen-validate/validate"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

// ShopPackage is the proto package of the fixture schema.
const ShopPackage = "shop.v1"

var (
	shopFile     protoreflect.FileDescriptor
	shopFileOnce sync.Once
)

// ShopFile returns the fixture file descriptor.
func ShopFile() protoreflect.FileDescriptor {
	shopFileOnce.Do(func() {
		fd, err := protodesc.NewFile(ShopFileProto(), nil)
		if err != nil {
			panic(err)
		}
		shopFile = fd
	})
	return shopFile
}

// ShopDescriptorSet returns the fixture as a FileDescriptorSet, the shape
// `protoc --descriptor_set_out` writes.
func ShopDescriptorSet() *descriptorpb.FileDescriptorSet {
	return &descriptorpb.FileDescriptorSet{
		File: []*descriptorpb.FileDescriptorProto{ShopFileProto()},
	}
}

// ShopFileProto returns a fresh copy of the fixture file descriptor proto.
func ShopFileProto() *descriptorpb.FileDescriptorProto {
	required := &descriptorpb.FieldOptions{}
	proto.SetExtension(required, validate.E_Rules, &validate.FieldRules{
		Message: &validate.MessageRules{Required: proto.Bool(true)},
	})

	customer := field("customer", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".shop.v1.Customer")
	customer.Options = required

	tags := field("tags", 4, descriptorpb.FieldDescriptorProto_TYPE_STRING, "")
	tags.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("shop/v1/shop.proto"),
		Package: proto.String(ShopPackage),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Money"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("currency", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
					field("units", 2, descriptorpb.FieldDescriptorProto_TYPE_INT64, ""),
				},
			},
			{
				Name: proto.String("Customer"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("name", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
					field("address", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".shop.v1.Customer.Address"),
				},
				NestedType: []*descriptorpb.DescriptorProto{
					{
						Name: proto.String("Address"),
						Field: []*descriptorpb.FieldDescriptorProto{
							field("city", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
						},
					},
				},
			},
			{
				Name: proto.String("Order"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
					customer,
					field("total", 3, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".shop.v1.Money"),
					tags,
				},
			},
			{
				Name: proto.String("Receipt"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("order_id", 1, descriptorpb.FieldDescriptorProto_TYPE_STRING, ""),
					field("charged", 2, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, ".shop.v1.Money"),
				},
			},
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("OrderService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					{
						Name:       proto.String("PlaceOrder"),
						InputType:  proto.String(".shop.v1.Order"),
						OutputType: proto.String(".shop.v1.Receipt"),
					},
					{
						Name:            proto.String("WatchOrders"),
						InputType:       proto.String(".shop.v1.Order"),
						OutputType:      proto.String(".shop.v1.Receipt"),
						ServerStreaming: proto.Bool(true),
					},
				},
			},
		},
	}
}

func field(
	name string,
	number int32,
	typ descriptorpb.FieldDescriptorProto_Type,
	typeName string,
) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     typ.Enum(),
		JsonName: proto.String(jsonName(name)),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func jsonName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
