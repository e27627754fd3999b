package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_CookieIsAuthoritative(t *testing.T) {
	r := Resolver{Mint: func() string { return "minted" }}

	id, err := r.Resolve("cookie-cart", "user-42")
	require.NoError(t, err)
	assert.Equal(t, "cookie-cart", id)
}

func TestResolve_PrincipalFallback(t *testing.T) {
	r := Resolver{Mint: func() string { return "minted" }}

	id, err := r.Resolve("", "user-42")
	require.NoError(t, err)
	assert.Equal(t, "user-42", id)
}

func TestResolve_MintsWhenNoCredentials(t *testing.T) {
	r := Resolver{Mint: func() string { return "minted" }}

	id, err := r.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, "minted", id)
}

func TestResolve_NoCredentialsNoMint(t *testing.T) {
	r := Resolver{}

	_, err := r.Resolve("", "")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestDefault_MintsUniqueIDs(t *testing.T) {
	r := Default()

	a, err := r.Resolve("", "")
	require.NoError(t, err)
	b, err := r.Resolve("", "")
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
