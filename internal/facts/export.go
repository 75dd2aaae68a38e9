// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cadfacts/pkg/types"
)

// Export formats.
const (
	FormatYAML     = "yaml"
	FormatJSON     = "json"
	FormatNTriples = "nt"
)

const xsdNamespace = "http://www.w3.org/2001/XMLSchema#"

// Export writes every fact matching opts to w in format.
func Export(ctx context.Context, s Store, w io.Writer, format string, opts QueryOptions) (int, error) {
	opts.MaxResults = exportLimit
	results, err := s.Retrieve(ctx, opts)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}

	var data []byte
	switch format {
	case FormatYAML:
		data, err = yaml.Marshal(results)
	case FormatJSON:
		data, err = json.MarshalIndent(results, "", "  ")
	case FormatNTriples:
		data = []byte(ntriples(results))
	default:
		return 0, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return 0, fmt.Errorf("marshaling %s: %w", format, err)
	}

	if _, err := w.Write(data); err != nil {
		return 0, fmt.Errorf("writing export: %w", err)
	}
	return len(results), nil
}

// ExportFile writes the export to dir/index/export.<format> and returns
// the path.
func ExportFile(ctx context.Context, s Store, dir, format string, opts QueryOptions) (string, int, error) {
	indexPath := filepath.Join(dir, indexDir)
	if err := os.MkdirAll(indexPath, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating index directory: %w", err)
	}
	path := filepath.Join(indexPath, "export."+format)

	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := Export(ctx, s, f, format, opts)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing %s: %w", path, cerr)
	}
	if err != nil {
		return "", 0, err
	}
	return path, n, nil
}

// Import reads a YAML or JSON export and emits every fact to sink.
func Import(ctx context.Context, sink Sink, r io.Reader, format string) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("reading import: %w", err)
	}

	var facts []types.Fact
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &facts)
	case FormatJSON:
		err = json.Unmarshal(data, &facts)
	default:
		return 0, fmt.Errorf("cannot import format %q", format)
	}
	if err != nil {
		return 0, fmt.Errorf("parsing %s import: %w", format, err)
	}

	for i, f := range facts {
		if err := sink.Emit(ctx, f); err != nil {
			return i, err
		}
	}
	return len(facts), sink.Flush(ctx)
}

// ntriples renders facts as N-Triples. Resource objects are IRIs; literals
// carry their XML Schema datatype.
func ntriples(facts []types.Fact) string {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "<%s> <%s> ", ntIRI(f.Subject), ntIRI(f.Predicate))
		if f.IsLiteral() {
			fmt.Fprintf(&b, "\"%s\"^^<%s>", ntLiteral(f.Object), ntIRI(xsdNamespace+string(f.Datatype)))
		} else {
			fmt.Fprintf(&b, "<%s>", ntIRI(f.Object))
		}
		b.WriteString(" .\n")
	}
	return b.String()
}

// ntIRI escapes the characters an IRIREF may not contain as \uXXXX.
func ntIRI(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&b, "\\u%04X", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ntLiteral escapes a string literal body. Control characters without a
// short escape become \uXXXX.
func ntLiteral(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, "\\u%04X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
