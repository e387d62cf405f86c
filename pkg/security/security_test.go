package security

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func genKeyPair(t *testing.T) ([]byte, []byte) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pub := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	return priv, pub
}

func TestJWTRoundTrip(t *testing.T) {
	priv, pub := genKeyPair(t)

	claims := NewTokenClaims("app", "brain-ingest", "user-1", time.Now().Add(time.Hour).Unix())
	token, err := GenerateJWT(claims, priv)
	require.NoError(t, err)

	got, err := VerifyToken(token, pub)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.GetUser())
}

func TestJWTExpired(t *testing.T) {
	priv, pub := genKeyPair(t)

	claims := NewTokenClaims("app", "brain-ingest", "user-1", time.Now().Add(-time.Hour).Unix())
	token, err := GenerateJWT(claims, priv)
	require.NoError(t, err)

	_, err = VerifyToken(token, pub)
	assert.Error(t, err)
}

func TestJWTFieldsRoundTrip(t *testing.T) {
	priv, pub := genKeyPair(t)

	claims := NewTokenClaims("app", "brain-ingest", "user-1", time.Now().Add(time.Hour).Unix())
	claims.Fields["role"] = "Owner"
	token, err := GenerateJWT(claims, priv)
	require.NoError(t, err)

	got, err := ParseJWT(token, pub)
	require.NoError(t, err)
	assert.Equal(t, "app", got.Appid)
	assert.Equal(t, "Owner", got.Field("role"))
	assert.Equal(t, claims.ExpireTime, got.ExpireTime)
}

func TestJWTWrongKey(t *testing.T) {
	priv, _ := genKeyPair(t)
	_, otherPub := genKeyPair(t)

	token, err := GenerateJWT(NewTokenClaims("app", "brain-ingest", "user-1", time.Now().Add(time.Hour).Unix()), priv)
	require.NoError(t, err)

	_, err = VerifyToken(token, otherPub)
	assert.ErrorIs(t, err, ErrInvalidJWT)

	_, err = VerifyToken(token, nil)
	assert.ErrorIs(t, err, ErrPublicKey)
}
