// Package scrape extracts structured data from the text of generated functions.
//
// Code generators such as protobufjs emit accessor functions that follow a fixed
// template. When the structural metadata behind those functions is not available
// at runtime, the function text is the only place left to recover it from.
// Scrape matches that text against a pattern and returns the captured groups.
package scrape

import "regexp"

var (
	// MessageFieldPattern matches a nested message assignment inside a
	// generated fromObject converter:
	//
	//	message.inner = $root.a.b.Inner.fromObject(object.inner);
	//
	// Group 1 is the field name, group 2 the dotted type path.
	MessageFieldPattern = regexp.MustCompile(`(?im)^\s*message\.(.*?)\s*=\s*\$root\.(.*)\.fromObject.*$`)

	// ServiceMethodPattern matches the single return statement of a generated
	// service method:
	//
	//	return this.rpcCall(greet, $root.a.b.Request, $root.a.b.Response, request, callback);
	//
	// Group 1 is the method reference, group 2 the request type path and
	// group 3 the response type path.
	ServiceMethodPattern = regexp.MustCompile(`(?im)^\s*return\s*this\.rpcCall\((.*?),\s*\$root\.(.*?),\s*\$root\.(.*?),.*$`)
)

// Scrape returns every non-overlapping match of pattern in source, in source
// order. Each match is the ordered list of its capture groups; the whole-match
// group is not included. No matches yields an empty slice.
func Scrape(source string, pattern *regexp.Regexp) [][]string {
	matches := make([][]string, 0)
	if pattern == nil || source == "" {
		return matches
	}

	for _, m := range pattern.FindAllStringSubmatch(source, -1) {
		matches = append(matches, m[1:])
	}

	return matches
}
