package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidILID(t *testing.T) {
	require.True(t, isValidILID("000000018"))
	require.False(t, isValidILID("123456789"))
	require.False(t, isValidILID("12345678"))
}

func TestRedactEmailReplace(t *testing.T) {
	out := Redact("contact me at alice@example.com please", Policy{
		Entities: []Entity{EntityEmail}, Action: ActionReplace, ScoreThreshold: 0.5,
	})
	require.Equal(t, "contact me at <EMAIL_ADDRESS> please", out)
}

func TestRedactHashIsStableAndShort(t *testing.T) {
	policy := Policy{Entities: []Entity{EntityEmail}, Action: ActionHash, ScoreThreshold: 0.5}
	out1 := Redact("email: alice@example.com", policy)
	out2 := Redact("email: alice@example.com", policy)
	require.Equal(t, out1, out2, "hashing must be deterministic for the same input")
	require.Contains(t, out1, "<EMAIL_ADDRESS_")
}

func TestRedactFullRemoval(t *testing.T) {
	out := Redact("card 4111111111111111 expires", Policy{
		Entities: []Entity{EntityCreditCard}, Action: ActionRedact, ScoreThreshold: 0.5,
	})
	require.NotContains(t, out, "4111111111111111")
	require.NotContains(t, out, "<CREDIT_CARD>")
}

func TestRedactForEmbeddingAlwaysReplaces(t *testing.T) {
	policy := Policy{Entities: []Entity{EntityEmail}, Action: ActionHash, ScoreThreshold: 0.5}
	out := RedactForEmbedding("alice@example.com", policy)
	require.Equal(t, "<EMAIL_ADDRESS>", out)
}

func TestRedactILPhoneNumber(t *testing.T) {
	out := Redact("call me at 050-1234567 now", Policy{
		Entities: []Entity{EntityPhoneNumber}, Action: ActionReplace, ScoreThreshold: 0.5,
	})
	require.Equal(t, "call me at <PHONE_NUMBER> now", out)
}

func TestPolicyForFallsBackToWhatsApp(t *testing.T) {
	p := PolicyFor(map[string]Policy{}, "unknown_channel")
	require.Equal(t, DefaultPolicies["whatsapp"], p)
}
