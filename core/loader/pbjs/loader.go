// Package pbjs loads protobufjs static modules (the output of
// `pbjs -t static-module`) into a registry namespace tree without running them.
package pbjs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anoideaopen/pbreflect/core/logger"
	"github.com/anoideaopen/pbreflect/core/registry"
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/core/telemetry"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.opentelemetry.io/otel/codes"
)

const (
	rootIdent     = "$root"
	serviceMarker = "$protobuf.rpc.Service"
	prototypeProp = "prototype"
	fromObjectFn  = "fromObject"
)

var (
	ErrEmptySource = errors.New("empty source")
	ErrSyntax      = errors.New("source has syntax errors")
	ErrNoRoot      = errors.New("no $root declaration found")
)

// LoadFile reads and loads a static module from path.
func LoadFile(ctx context.Context, path string) (*registry.Namespace, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	ns, err := Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	return ns, nil
}

// Load parses a static module and returns its root namespace. Namespaces become
// *registry.Namespace, message classes *MessageType and service classes
// *rpc.ServiceType. Enums are skipped.
//
// The module may be bare CommonJS, wrapped in the default UMD factory or an ES6
// module: types are read from the block declaring $root.
func Load(ctx context.Context, src []byte) (*registry.Namespace, error) {
	ctx, span := telemetry.StartSpan(ctx, "pbjs.Load")
	defer span.End()

	if len(bytes.TrimSpace(src)) == 0 {
		span.SetStatus(codes.Error, ErrEmptySource.Error())
		return nil, ErrEmptySource
	}

	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parsing module: %w", err)
	}

	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("parsing module: %w", err)
	}

	program := tree.RootNode()
	if program.HasError() {
		span.SetStatus(codes.Error, ErrSyntax.Error())
		return nil, ErrSyntax
	}

	b := &builder{src: src}
	block := b.rootBlock(program)
	if block == nil {
		span.SetStatus(codes.Error, ErrNoRoot.Error())
		return nil, ErrNoRoot
	}

	root := registry.New()
	b.namespace(block, rootIdent, "", root)

	logger.Logger().WithField("types", b.types).Debug("pbjs module loaded")

	return root, nil
}

type builder struct {
	src   []byte
	types int
}

// namespace registers every `ident.name = (function() {...})()` statement found
// directly in block.
func (b *builder) namespace(block *sitter.Node, ident, path string, ns *registry.Namespace) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		name, body := b.iifeAssignment(block.NamedChild(i), ident)
		if body == nil {
			continue
		}

		fullName := registry.Join(path, name)
		switch {
		case b.declaresObject(body, name):
			child := ns.Namespace(name)
			if child == nil {
				continue
			}
			b.namespace(body, name, fullName, child)
		case b.constructor(body, name) != nil:
			ns.Set(name, b.class(body, name, fullName))
		}
	}
}

// rootBlock returns the program or function body holding the `$root`
// declaration, or nil when the module declares none.
func (b *builder) rootBlock(n *sitter.Node) *sitter.Node {
	if n.Type() == "variable_declarator" {
		if id := n.ChildByFieldName("name"); id != nil && b.text(id) == rootIdent {
			for p := n.Parent(); p != nil; p = p.Parent() {
				if p.Type() == "program" || p.Type() == "statement_block" {
					return p
				}
			}
		}
		return nil
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if block := b.rootBlock(n.NamedChild(i)); block != nil {
			return block
		}
	}

	return nil
}

// class builds the type declared by an IIFE body.
func (b *builder) class(body *sitter.Node, name, fullName string) any {
	b.types++
	ctor := b.constructor(body, name)

	if strings.Contains(b.text(body), serviceMarker) {
		methods := []rpc.PrototypeMethod{{Name: rpc.ConstructorName, Source: b.text(ctor)}}
		b.walk(body, func(n *sitter.Node) {
			if method, fn := b.prototypeAssignment(n, name); fn != nil {
				methods = append(methods, rpc.PrototypeMethod{Name: method, Source: b.text(fn)})
			}
		})
		return rpc.NewServiceType(fullName, methods...)
	}

	var fromObject string
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if prop, fn := b.staticAssignment(stmt, name); prop == fromObjectFn && fn != nil {
			fromObject = b.text(fn)
		}
	}

	mt := NewMessageType(fullName, fromObject)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		nestedName, nestedBody := b.iifeAssignment(body.NamedChild(i), name)
		if nestedBody == nil || b.constructor(nestedBody, nestedName) == nil {
			continue
		}
		mt.nested.Set(nestedName, b.class(nestedBody, nestedName, registry.Join(fullName, nestedName)))
	}

	return mt
}

// iifeAssignment matches `ident.name = (function() {...})();`, also as the
// value of an exported or plain declaration, and returns the name and
// function body.
func (b *builder) iifeAssignment(stmt *sitter.Node, ident string) (string, *sitter.Node) {
	for _, expr := range b.assignments(stmt) {
		left, right := split(expr)

		obj, prop, ok := b.member(left)
		if !ok || obj != ident || right == nil || right.Type() != "call_expression" {
			continue
		}

		callee := right.ChildByFieldName("function")
		for callee != nil && callee.Type() == "parenthesized_expression" {
			callee = callee.NamedChild(0)
		}
		if !isFunction(callee) {
			continue
		}

		if body := callee.ChildByFieldName("body"); body != nil && body.Type() == "statement_block" {
			return prop, body
		}
	}

	return "", nil
}

// staticAssignment matches `Name.prop = function ...;`.
func (b *builder) staticAssignment(stmt *sitter.Node, name string) (string, *sitter.Node) {
	for _, expr := range b.assignments(stmt) {
		left, right := split(expr)
		if !isFunction(right) {
			continue
		}

		if obj, prop, ok := b.member(left); ok && obj == name {
			return prop, right
		}
	}

	return "", nil
}

// prototypeAssignment matches an `Name.prototype.method = function ...`
// assignment expression anywhere in the class body.
func (b *builder) prototypeAssignment(n *sitter.Node, name string) (string, *sitter.Node) {
	if n.Type() != "assignment_expression" {
		return "", nil
	}

	left, right := n.ChildByFieldName("left"), n.ChildByFieldName("right")
	if left == nil || !isFunction(right) || left.Type() != "member_expression" {
		return "", nil
	}

	obj, prop, ok := b.member(left.ChildByFieldName("object"))
	if !ok || obj != name || prop != prototypeProp {
		return "", nil
	}

	method := left.ChildByFieldName("property")
	if method == nil {
		return "", nil
	}

	return b.text(method), right
}

// assignments returns the assignment expressions of a statement:
// `a.b = c;` and `[export] const x = a.b = c;`.
func (b *builder) assignments(stmt *sitter.Node) []*sitter.Node {
	if stmt == nil {
		return nil
	}

	switch stmt.Type() {
	case "expression_statement":
		if stmt.NamedChildCount() > 0 && stmt.NamedChild(0).Type() == "assignment_expression" {
			return []*sitter.Node{stmt.NamedChild(0)}
		}
	case "export_statement":
		return b.assignments(stmt.ChildByFieldName("declaration"))
	case "variable_declaration", "lexical_declaration":
		var exprs []*sitter.Node
		for i := 0; i < int(stmt.NamedChildCount()); i++ {
			d := stmt.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			if value := d.ChildByFieldName("value"); value != nil && value.Type() == "assignment_expression" {
				exprs = append(exprs, value)
			}
		}
		return exprs
	}

	return nil
}

// split returns both sides of an assignment expression. Either may be nil.
func split(expr *sitter.Node) (*sitter.Node, *sitter.Node) {
	return expr.ChildByFieldName("left"), expr.ChildByFieldName("right")
}

// member splits `ident.prop`.
func (b *builder) member(n *sitter.Node) (string, string, bool) {
	if n == nil || n.Type() != "member_expression" {
		return "", "", false
	}

	obj, prop := n.ChildByFieldName("object"), n.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return "", "", false
	}

	return b.text(obj), b.text(prop), true
}

// declaresObject reports whether body starts a namespace: `var name = {};`.
func (b *builder) declaresObject(body *sitter.Node, name string) bool {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		decl := body.NamedChild(i)
		if decl.Type() != "variable_declaration" && decl.Type() != "lexical_declaration" {
			continue
		}
		for j := 0; j < int(decl.NamedChildCount()); j++ {
			d := decl.NamedChild(j)
			if d.Type() != "variable_declarator" {
				continue
			}
			id, value := d.ChildByFieldName("name"), d.ChildByFieldName("value")
			if id != nil && value != nil && b.text(id) == name &&
				value.Type() == "object" && value.NamedChildCount() == 0 {
				return true
			}
		}
	}

	return false
}

// constructor returns `function name(...) {...}` declared directly in body.
func (b *builder) constructor(body *sitter.Node, name string) *sitter.Node {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		fn := body.NamedChild(i)
		if fn.Type() != "function_declaration" {
			continue
		}
		if id := fn.ChildByFieldName("name"); id != nil && b.text(id) == name {
			return fn
		}
	}

	return nil
}

func (b *builder) walk(n *sitter.Node, fn func(*sitter.Node)) {
	fn(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		b.walk(n.NamedChild(i), fn)
	}
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

func isFunction(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "function_expression", "function", "arrow_function":
		return true
	}
	return false
}
