package token_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/temoins-console/token"
	"github.com/stretchr/testify/require"
)

func TestHMACSigner_SignVerify(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	raw, err := signer.Sign(jwt.MapClaims{
		"email": "a@example.com",
		"exp":   time.Now().Add(time.Minute).Unix(),
	})
	require.NoError(t, err)

	claims, err := token.Verify(signer, raw)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", claims["email"])
}

func TestVerify_WrongSecret(t *testing.T) {
	raw, err := token.NewHMACSigner("secret").Sign(jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)

	_, err = token.Verify(token.NewHMACSigner("other"), raw)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	raw, err := signer.Sign(jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)

	_, err = token.Verify(signer, raw)
	require.Error(t, err)
}

func TestVerify_MissingExp(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	raw, err := signer.Sign(jwt.MapClaims{"email": "a@example.com"})
	require.NoError(t, err)

	_, err = token.Verify(signer, raw)
	require.Error(t, err)
}

func TestVerify_TimeFunc(t *testing.T) {
	signer := token.NewHMACSigner("secret")
	exp := time.Unix(1792324800, 0)
	raw, err := signer.Sign(jwt.MapClaims{"exp": exp.Unix()})
	require.NoError(t, err)

	_, err = token.Verify(signer, raw, jwt.WithTimeFunc(func() time.Time { return exp.Add(-time.Second) }))
	require.NoError(t, err)

	_, err = token.Verify(signer, raw, jwt.WithTimeFunc(func() time.Time { return exp.Add(time.Second) }))
	require.Error(t, err)
}
