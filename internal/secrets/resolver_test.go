package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReferenceRecognizesPrefixOnly(t *testing.T) {
	assert.True(t, IsReference("$AWS_SECRET:db-password"))
	assert.False(t, IsReference("plain-value"))
	assert.False(t, IsReference(""))
}

func TestResolveNonReferencePassesThroughWithoutTouchingAWS(t *testing.T) {
	r := &Resolver{cache: make(map[string]string)}

	out, err := r.Resolve(context.Background(), "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", out)
}

func TestResolveReturnsCachedValueWithoutCallingAWS(t *testing.T) {
	r := &Resolver{cache: map[string]string{"db-password": "cached-secret"}}

	out, err := r.Resolve(context.Background(), "$AWS_SECRET:db-password")
	require.NoError(t, err)
	assert.Equal(t, "cached-secret", out)
}

func TestResolveAllPassesThroughNonReferenceEntries(t *testing.T) {
	r := &Resolver{cache: make(map[string]string)}

	out, err := r.ResolveAll(context.Background(), map[string]string{
		"HOST": "localhost",
		"PORT": "5432",
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"HOST": "localhost", "PORT": "5432"}, out)
}

func TestResolveAllMixesCachedReferencesAndPlainValues(t *testing.T) {
	r := &Resolver{cache: map[string]string{"api-key": "secret-value"}}

	out, err := r.ResolveAll(context.Background(), map[string]string{
		"API_KEY": "$AWS_SECRET:api-key",
		"DEBUG":   "true",
	})

	require.NoError(t, err)
	assert.Equal(t, "secret-value", out["API_KEY"])
	assert.Equal(t, "true", out["DEBUG"])
}
