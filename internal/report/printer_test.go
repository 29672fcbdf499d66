package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/detest/internal/engine"
)

// yamlDocs splits printer output into decoded YAML documents.
func yamlDocs(t *testing.T, out string) []map[string]any {
	t.Helper()
	dec := yaml.NewDecoder(strings.NewReader(out))
	var docs []map[string]any
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if err != nil {
			break
		}
		docs = append(docs, doc)
	}
	return docs
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNest(t *testing.T) {
	assert.Equal(t, "leaf", Nest(nil, "leaf"))
	assert.Equal(t,
		map[string]any{"a": map[string]any{"b": "leaf"}},
		Nest([]string{"a", "b"}, "leaf"),
	)
}

func TestPrinter_YAMLFailureNestedUnderPath(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML)

	p.Fail([]string{"outer", "inner"}, &engine.Failure{
		Kind:    engine.FailureAssertion,
		Message: "condition must be true (!nil && !false)",
	})
	require.NoError(t, p.Err())

	assert.True(t, strings.HasPrefix(buf.String(), "---\n"))
	docs := yamlDocs(t, buf.String())
	require.Len(t, docs, 1)
	inner := docs[0]["outer"].(map[string]any)["inner"].(map[string]any)
	assert.Equal(t, "condition must be true (!nil && !false)", inner["fail"])
	assert.Equal(t, "assertion", inner["kind"])
}

func TestPrinter_FinishPassedIncludesTrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML)

	p.Finish(&engine.Report{
		Stats: engine.Stats{Time: 2500 * time.Millisecond, Pass: 2},
		Trace: engine.Trace{{Kind: engine.EntryTest, Test: "ok"}},
	})
	require.NoError(t, p.Err())

	docs := yamlDocs(t, buf.String())
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0], "trace")
	stats := docs[1]["stats"].(map[string]any)
	assert.Equal(t, 2, stats["pass"])
	assert.Equal(t, 2.5, stats["time"])
}

func TestPrinter_FinishFailedOmitsTrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatYAML)

	p.Finish(&engine.Report{
		Stats: engine.Stats{Fail: 1},
		Trace: engine.Trace{{Kind: engine.EntryTest, Test: "bad"}},
	})

	docs := yamlDocs(t, buf.String())
	require.Len(t, docs, 1)
	assert.Contains(t, docs[0], "stats")
}

func TestPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatJSON)

	p.Fail([]string{"suite"}, &engine.Failure{Kind: engine.FailureError, Message: "boom"})
	p.Finish(&engine.Report{Stats: engine.Stats{Error: 1}})
	require.NoError(t, p.Err())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var failure map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &failure))
	assert.Equal(t, "boom", failure["suite"]["fail"])
	assert.Equal(t, "error", failure["suite"]["kind"])

	var stats map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &stats))
	assert.Equal(t, 1.0, stats["stats"]["error"])
}

type failingWriter struct{ writes int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.writes++
	return 0, errors.New("disk full")
}

func TestPrinter_KeepsFirstWriteError(t *testing.T) {
	w := &failingWriter{}
	p := NewPrinter(w, FormatJSON)

	p.Fail(nil, &engine.Failure{Message: "one"})
	p.Fail(nil, &engine.Failure{Message: "two"})

	require.Error(t, p.Err())
	assert.Contains(t, p.Err().Error(), "disk full")
	assert.Equal(t, 1, w.writes, "later documents are skipped")
}

func TestPrinter_AsEngineReporter(t *testing.T) {
	var buf bytes.Buffer
	e := engine.New(engine.WithReporter(NewPrinter(&buf, FormatYAML)))

	e.Test("outer", func(*engine.Sandbox) {
		e.Test("inner", func(*engine.Sandbox) {
			e.True(engine.Value(false), "expected truth")
		})
	})
	_, err := e.Run()
	require.NoError(t, err)

	docs := yamlDocs(t, buf.String())
	require.Len(t, docs, 2, "one failure, then stats without trace")
	inner := docs[0]["outer"].(map[string]any)["inner"].(map[string]any)
	assert.Equal(t, "expected truth", inner["fail"])
	assert.NotEmpty(t, inner["call"])
	assert.Contains(t, docs[1], "stats")
}
