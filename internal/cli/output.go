package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/anoideaopen/pbreflect/core/reflection"
	"github.com/anoideaopen/pbreflect/internal/config"
	"gopkg.in/yaml.v3"
)

// render writes v as JSON or YAML, or calls tableFn for the table format.
func render(w io.Writer, format string, v any, tableFn func(io.Writer)) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatTable:
		tableFn(w)
		return nil
	}

	return fmt.Errorf("%w: '%s'", config.ErrUnknownFormat, format)
}

func messageTable(w io.Writer, m *reflection.ReflectedMessageType) {
	title(w, "message %s", m.FullName())

	t := newTable(w, "ID", "NAME", "TYPE", "REPEATED", "REQUIRED")
	for _, f := range m.FieldsArray {
		t.addRow(strconv.Itoa(f.ID), f.Name, f.Type, yesNo(f.Repeated), yesNo(f.Required))
	}
	t.render()
}

func serviceTable(w io.Writer, s *reflection.ReflectedService) {
	title(w, "service %s", s.FullName())

	t := newTable(w, "NAME", "KIND", "REQUEST", "RESPONSE")
	for _, m := range s.MethodsArray {
		t.addRow(m.Name, string(m.Kind), streamed(m.RequestType, m.RequestStream), streamed(m.ResponseType, m.ResponseStream))
	}
	t.render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func streamed(typ string, stream bool) string {
	if stream {
		return "stream " + typ
	}
	return typ
}
