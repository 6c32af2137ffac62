package reflection

import (
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/core/scrape"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// MethodKind is the kind of a service method.
type MethodKind string

// MethodKindRPC is the only kind recognised. Other kinds are structurally
// possible in schemas but the rpcCall template cannot tell them apart.
const MethodKindRPC MethodKind = "rpc"

// Method is one recovered service method.
type Method struct {
	Name           string     `json:"name" yaml:"name"`
	Kind           MethodKind `json:"kind" yaml:"kind"`
	RequestType    string     `json:"requestType" yaml:"requestType"`
	ResponseType   string     `json:"responseType" yaml:"responseType"`
	RequestStream  bool       `json:"requestStream,omitempty" yaml:"requestStream,omitempty"`
	ResponseStream bool       `json:"responseStream,omitempty" yaml:"responseStream,omitempty"`
}

// ReflectedService is a service instance together with its recovered metadata.
type ReflectedService struct {
	Service      ServiceLike        `json:"-" yaml:"-"`
	Name         string             `json:"name" yaml:"name"`
	NS           string             `json:"ns" yaml:"ns"`
	Methods      map[string]*Method `json:"-" yaml:"-"`
	MethodsArray []*Method          `json:"methods" yaml:"methods"`
}

// FullName returns NS.Name, or Name at the root.
func (s *ReflectedService) FullName() string {
	if s.NS == "" {
		return s.Name
	}
	return s.NS + "." + s.Name
}

// ReflectServiceMethods recovers the methods of st without caching. The
// descriptor is preferred; otherwise every prototype method except the
// constructor is scraped, in prototype order.
func ReflectServiceMethods(st *rpc.ServiceType) []*Method {
	if st == nil {
		return make([]*Method, 0)
	}

	if sd := st.Descriptor(); sd != nil {
		return describedMethods(sd)
	}

	methods := make([]*Method, 0)
	for _, pm := range st.Prototype() {
		if pm.Name == rpc.ConstructorName {
			continue
		}

		for _, m := range scrape.Scrape(pm.Source, scrape.ServiceMethodPattern) {
			methods = append(methods, &Method{
				Name:         pm.Name,
				Kind:         MethodKindRPC,
				RequestType:  m[1],
				ResponseType: m[2],
			})
		}
	}

	return methods
}

func describedMethods(sd protoreflect.ServiceDescriptor) []*Method {
	mds := sd.Methods()

	methods := make([]*Method, 0, mds.Len())
	for i := 0; i < mds.Len(); i++ {
		md := mds.Get(i)
		methods = append(methods, &Method{
			Name:           string(md.Name()),
			Kind:           MethodKindRPC,
			RequestType:    string(md.Input().FullName()),
			ResponseType:   string(md.Output().FullName()),
			RequestStream:  md.IsStreamingClient(),
			ResponseStream: md.IsStreamingServer(),
		})
	}

	return methods
}
