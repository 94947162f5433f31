package scriptgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

func TestGenerateReturnsTrimmedScript(t *testing.T) {
	g := New(&StaticClient{Script: "  credentials[0].age >= 21  "})

	script, err := g.Generate(context.Background(), Request{
		Lang:         zkvmtypes.ScriptLangRhai,
		CredSchemes:  []string{`{"type":"object"}`},
		Requirements: "holder is at least 21",
	})

	require.NoError(t, err)
	assert.Equal(t, "credentials[0].age >= 21", script)
}

func TestGeneratePropagatesClientError(t *testing.T) {
	g := New(&StaticClient{Err: errors.New("boom")})

	_, err := g.Generate(context.Background(), Request{
		Lang:         zkvmtypes.ScriptLangRhai,
		Requirements: "anything",
	})

	assert.Error(t, err)
}

func TestGenerateRejectsUnsupportedLang(t *testing.T) {
	g := New(&StaticClient{Script: "true"})

	_, err := g.Generate(context.Background(), Request{
		Lang:         zkvmtypes.ScriptLangJavaScript,
		Requirements: "anything",
	})

	assert.Error(t, err)
}

func TestGenerateRequiresClient(t *testing.T) {
	g := New(nil)

	_, err := g.Generate(context.Background(), Request{Lang: zkvmtypes.ScriptLangRhai})

	assert.Error(t, err)
}
