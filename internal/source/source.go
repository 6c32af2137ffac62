// Package source opens a schema source file as a registry namespace tree.
package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/anoideaopen/pbreflect/core/loader/descset"
	"github.com/anoideaopen/pbreflect/core/loader/pbjs"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/stringsx"
	"github.com/anoideaopen/pbreflect/core/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// IsModule reports whether path names a protobufjs static module rather than
// a descriptor set.
func IsModule(path string) bool {
	return stringsx.OneOf(strings.ToLower(filepath.Ext(path)), ".js", ".cjs", ".mjs")
}

// Load reads a static module or a descriptor set depending on the extension.
func Load(ctx context.Context, path string) (*registry.Namespace, error) {
	ctx, span := telemetry.StartSpan(ctx, "source.Load", telemetry.Source(path))
	defer span.End()

	root, err := load(ctx, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return root, nil
}

func load(ctx context.Context, path string) (*registry.Namespace, error) {
	if IsModule(path) {
		return pbjs.LoadFile(ctx, path)
	}

	files, err := descset.LoadFile(path)
	if err != nil {
		return nil, err
	}

	root := registry.New()
	if err = descset.Populate(root, files); err != nil {
		return nil, err
	}

	return root, nil
}
