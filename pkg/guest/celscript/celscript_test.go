package celscript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalSimplePredicate(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	creds := []map[string]any{
		{"age": 21},
		{"age": 17},
	}

	result, err := e.Eval("credentials[0].age >= 18", creds)
	require.NoError(t, err)
	assert.True(t, result)

	result, err = e.Eval("credentials[1].age >= 18", creds)
	require.NoError(t, err)
	assert.False(t, result)
}

func TestEvalAllCredentials(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	creds := []map[string]any{
		{"country": "US"},
		{"country": "US"},
	}

	result, err := e.Eval("credentials.all(c, c.country == \"US\")", creds)
	require.NoError(t, err)
	assert.True(t, result)
}

func TestEvalNonBooleanResultErrors(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.Eval("1 + 1", nil)
	assert.Error(t, err)
}

func TestEvalCompileErrorIsReported(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.Eval("credentials[", nil)
	assert.Error(t, err)
}

func TestEvalCachesCompiledProgram(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	_, err = e.Eval("true", nil)
	require.NoError(t, err)

	e.mu.RLock()
	_, cached := e.cache["true"]
	e.mu.RUnlock()
	assert.True(t, cached)
}
