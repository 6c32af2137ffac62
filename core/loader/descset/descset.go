// Package descset loads compiled protobuf schemas (FileDescriptorSet files
// written by `protoc -o`) into a registry namespace tree.
package descset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/anoideaopen/pbreflect/core/logger"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

var (
	ErrNamespaceConflict = errors.New("namespace segment is taken by a type")
	ErrNotFound          = errors.New("descriptor not found")
)

// LoadFile reads a FileDescriptorSet. Files ending in .json are decoded with
// protojson, everything else as binary.
func LoadFile(path string) (*protoregistry.Files, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	set := &descriptorpb.FileDescriptorSet{}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = protojson.Unmarshal(data, set)
	} else {
		err = proto.Unmarshal(data, set)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return NewFiles(set)
}

// NewFiles builds a file registry from a descriptor set.
func NewFiles(set *descriptorpb.FileDescriptorSet) (*protoregistry.Files, error) {
	files, err := protodesc.NewFiles(set)
	if err != nil {
		return nil, fmt.Errorf("building descriptors: %w", err)
	}
	return files, nil
}

// Populate registers every top-level message and service of files under
// namespaces named after their proto package.
func Populate(root *registry.Namespace, files *protoregistry.Files) error {
	var err error
	files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		err = populateFile(root, fd)
		return err == nil
	})
	return err
}

func populateFile(root *registry.Namespace, fd protoreflect.FileDescriptor) error {
	ns, err := packageNamespace(root, fd.Package())
	if err != nil {
		return fmt.Errorf("file %s: %w", fd.Path(), err)
	}

	msgs := fd.Messages()
	for i := 0; i < msgs.Len(); i++ {
		ns.Set(string(msgs.Get(i).Name()), NewMessageType(msgs.Get(i)))
	}

	svcs := fd.Services()
	for i := 0; i < svcs.Len(); i++ {
		ns.Set(string(svcs.Get(i).Name()), rpc.NewDescribedServiceType(svcs.Get(i)))
	}

	logger.Logger().WithFields(logrus.Fields{
		"file":     fd.Path(),
		"messages": msgs.Len(),
		"services": svcs.Len(),
	}).Debug("descriptor file registered")

	return nil
}

// FromGlobal registers generated Go types linked into the binary, looked up by
// full name in protoregistry.GlobalTypes (messages) and GlobalFiles (services).
func FromGlobal(root *registry.Namespace, names ...string) error {
	for _, name := range names {
		fullName := protoreflect.FullName(name)

		if mt, err := protoregistry.GlobalTypes.FindMessageByName(fullName); err == nil {
			if err = register(root, mt.Descriptor(), wrapMessageType(mt)); err != nil {
				return err
			}
			continue
		}

		d, err := protoregistry.GlobalFiles.FindDescriptorByName(fullName)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		sd, ok := d.(protoreflect.ServiceDescriptor)
		if !ok {
			return fmt.Errorf("%w: %s is not a message or service", ErrNotFound, name)
		}
		if err = register(root, sd, rpc.NewDescribedServiceType(sd)); err != nil {
			return err
		}
	}

	return nil
}

func register(root *registry.Namespace, d protoreflect.Descriptor, v any) error {
	ns, err := packageNamespace(root, d.ParentFile().Package())
	if err != nil {
		return fmt.Errorf("%s: %w", d.FullName(), err)
	}

	if parent, ok := d.Parent().(protoreflect.MessageDescriptor); ok {
		// nested messages live inside their parent message type
		owner, ok := ns.Get(string(parent.Name()))
		mt, isType := owner.(*MessageType)
		if !ok || !isType {
			return fmt.Errorf("%w: parent of %s is not registered", ErrNotFound, d.FullName())
		}
		mt.nested.Set(string(d.Name()), v)
		return nil
	}

	ns.Set(string(d.Name()), v)
	return nil
}

func packageNamespace(root *registry.Namespace, pkg protoreflect.FullName) (*registry.Namespace, error) {
	ns := root
	if pkg == "" {
		return ns, nil
	}

	for _, part := range strings.Split(string(pkg), ".") {
		if ns = ns.Namespace(part); ns == nil {
			return nil, fmt.Errorf("%w: %s in %s", ErrNamespaceConflict, part, pkg)
		}
	}

	return ns, nil
}
