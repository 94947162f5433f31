package prover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/verza/zkcreds/pkg/kms"
	"github.com/verza/zkcreds/pkg/zkvmtypes"
)

func TestKMSProverProveVerify(t *testing.T) {
	ctx := context.Background()
	km, err := kms.NewLocalKMS(zap.NewNop())
	require.NoError(t, err)

	p, err := NewKMSProver(ctx, km, "guest-image-1")
	require.NoError(t, err)

	input := zkvmtypes.ZkvmInput{
		Credentials: []string{`{"details":"{\"age\":21}","nonce":"AA==","schema_id":0}`},
		Lang:        zkvmtypes.ScriptLangRhai,
		Script:      "credentials[0].age >= 18",
	}

	receipt, err := p.Prove(ctx, input)
	require.NoError(t, err)

	commit, err := p.Verify(receipt)
	require.NoError(t, err)
	require.False(t, commit.HasError)
	require.True(t, commit.Result)
}

func TestKMSProverRejectsWrongImage(t *testing.T) {
	ctx := context.Background()
	km, err := kms.NewLocalKMS(zap.NewNop())
	require.NoError(t, err)

	p1, err := NewKMSProver(ctx, km, "image-a")
	require.NoError(t, err)
	p2, err := NewKMSProver(ctx, km, "image-b")
	require.NoError(t, err)

	receipt, err := p1.Prove(ctx, zkvmtypes.ZkvmInput{
		Credentials: []string{`{"details":{"age":21},"nonce":"AA==","schema_id":0}`},
		Lang:        zkvmtypes.ScriptLangRhai,
		Script:      "credentials[0].age >= 18",
	})
	require.NoError(t, err)

	_, err = p2.Verify(receipt)
	require.Error(t, err)
}
