package report

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/detest/internal/engine"
)

// Format selects the document encoding of a Printer.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name. The empty string selects YAML.
func ParseFormat(name string) (Format, error) {
	switch Format(name) {
	case "", FormatYAML:
		return FormatYAML, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want yaml or json)", name)
	}
}

// Printer writes failures and the final report to a stream.
//
// Write errors do not interrupt the run; the first one is kept and
// returned by Err.
type Printer struct {
	w      io.Writer
	format Format
	err    error
}

// NewPrinter creates a Printer writing to w in the given format.
func NewPrinter(w io.Writer, format Format) *Printer {
	if format == "" {
		format = FormatYAML
	}
	return &Printer{w: w, format: format}
}

// Fail writes one failure nested under the test path, outermost first.
func (p *Printer) Fail(path []string, f *engine.Failure) {
	p.emit(Nest(path, f))
}

// Finish writes the trace when the run passed, then the stats.
func (p *Printer) Finish(r *engine.Report) {
	if r.Passed() {
		p.emit(map[string]any{"trace": r.Trace})
	}
	p.emit(map[string]any{"stats": r.Stats})
}

// Err returns the first write error, if any.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) emit(doc any) {
	if p.err != nil {
		return
	}

	var data []byte
	var err error
	switch p.format {
	case FormatJSON:
		data, err = json.Marshal(doc)
		data = append(data, '\n')
	default:
		data, err = yaml.Marshal(doc)
		data = append([]byte("---\n"), data...)
	}
	if err != nil {
		p.err = fmt.Errorf("encode report document: %w", err)
		return
	}

	if _, err := p.w.Write(data); err != nil {
		p.err = fmt.Errorf("write report document: %w", err)
	}
}

// Nest wraps v in one single-key mapping per path element, so that the
// outermost description is the top-level key.
func Nest(path []string, v any) any {
	for i := len(path) - 1; i >= 0; i-- {
		v = map[string]any{path[i]: v}
	}
	return v
}
