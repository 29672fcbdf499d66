package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSandbox(t *testing.T) {
	sb := newSandbox("owner")

	sb.Set("b", 2)
	sb.Set("a", 1)
	assert.Equal(t, "owner", sb.Owner())
	assert.Equal(t, 2, sb.Len())
	assert.Equal(t, []string{"a", "b"}, sb.Names())
	assert.Equal(t, 1, sb.Get("a"))
	assert.Nil(t, sb.Get("missing"))

	snapshot := sb.Vars()
	sb.Set("a", 100)
	assert.Equal(t, 1, snapshot["a"], "Vars returns a copy")

	sb.Delete("a")
	_, ok := sb.Lookup("a")
	assert.False(t, ok)
}

func TestHookKind_String(t *testing.T) {
	assert.Equal(t, "before_each", BeforeEachHook.String())
	assert.Equal(t, "after_all", AfterAllHook.String())
	assert.Equal(t, "hook(9)", HookKind(9).String())
	assert.Equal(t, "sample", ModeSample.String())
}
