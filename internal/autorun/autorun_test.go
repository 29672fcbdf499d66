package autorun

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/detest/internal/engine"
)

func TestRun_Passing(t *testing.T) {
	var out, errOut bytes.Buffer

	code := Run(&out, &errOut, func(e *engine.Engine) {
		e.Test("math", func(sb *engine.Sandbox) {
			e.True(engine.Value(1+1 == 2))
		})
	})

	assert.Equal(t, 0, code)
	assert.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "trace:")
	assert.Contains(t, out.String(), "math")
	assert.Contains(t, out.String(), "pass: 1")
}

func TestRun_FailuresSetExitCode(t *testing.T) {
	var out, errOut bytes.Buffer

	code := Run(&out, &errOut, func(e *engine.Engine) {
		e.Test("math", func(sb *engine.Sandbox) {
			e.True(engine.Value(false), "first")
			e.False(engine.Value(true), "second")
			e.True(engine.Value(true))
		})
	})

	assert.Equal(t, 2, code)
	assert.NotContains(t, out.String(), "trace:", "full trace only on success")

	dec := yaml.NewDecoder(&out)
	var docs []map[string]any
	for {
		var doc map[string]any
		if err := dec.Decode(&doc); err != nil {
			break
		}
		docs = append(docs, doc)
	}
	require.Len(t, docs, 3)
	assert.Contains(t, docs[0], "math")
	assert.Contains(t, docs[2], "stats")
}

func TestRun_UsageErrorWhileDefining(t *testing.T) {
	var out, errOut bytes.Buffer

	code := Run(&out, &errOut, func(e *engine.Engine) {
		e.Test("no body", nil)
	})

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut.String(), "MISSING_BODY")
}

func TestRun_UsageErrorWhileRunning(t *testing.T) {
	var out, errOut bytes.Buffer

	code := Run(&out, &errOut, func(e *engine.Engine) {
		e.Test("inject", func(sb *engine.Sandbox) {
			e.Inject("never shared")
		})
	})

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, errOut.String(), "UNKNOWN_SHARE")
}
