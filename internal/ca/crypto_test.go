package ca

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateRequest(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)

	csrPEM, err := certificateRequest("user1", key)
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(csrPEM))
	require.NotNil(t, block)
	assert.Equal(t, "CERTIFICATE REQUEST", block.Type)

	csr, err := x509.ParseCertificateRequest(block.Bytes)
	require.NoError(t, err)
	assert.NoError(t, csr.CheckSignature())
	assert.Equal(t, "user1", csr.Subject.CommonName)
}

func TestEncodeKey(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)

	keyPEM, err := encodeKey(key)
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(keyPEM))
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	require.NoError(t, err)
	assert.True(t, key.Equal(parsed))
}

func TestAuthToken(t *testing.T) {
	key, err := generateKey()
	require.NoError(t, err)
	keyPEM, err := encodeKey(key)
	require.NoError(t, err)

	registrar := &Enrollment{Certificate: "-----BEGIN CERTIFICATE-----\nregistrar\n", PrivateKey: keyPEM}
	body := []byte(`{"id":"user1"}`)
	halfOrder := new(big.Int).Rsh(key.Curve.Params().N, 1)

	b64 := base64.StdEncoding.EncodeToString
	payload := "POST." + b64([]byte("/api/v1/register")) + "." + b64(body) + "." + b64([]byte(registrar.Certificate))
	digest := sha256.Sum256([]byte(payload))

	for range 20 {
		token, err := authToken(registrar, "POST", "/api/v1/register", body)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		require.Len(t, parts, 2)
		assert.Equal(t, b64([]byte(registrar.Certificate)), parts[0])

		der, err := base64.StdEncoding.DecodeString(parts[1])
		require.NoError(t, err)
		assert.True(t, ecdsa.VerifyASN1(&key.PublicKey, digest[:], der))

		var sig struct{ R, S *big.Int }
		_, err = asn1.Unmarshal(der, &sig)
		require.NoError(t, err)
		assert.LessOrEqual(t, sig.S.Cmp(halfOrder), 0)
	}
}

func TestAuthToken_BadKey(t *testing.T) {
	_, err := authToken(&Enrollment{Certificate: "cert", PrivateKey: "garbage"}, "POST", "/", nil)
	assert.ErrorContains(t, err, "registrar key")
}
