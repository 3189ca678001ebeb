package ca

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"

	"github.com/hyperledger/fabric-gateway/pkg/identity"
)

func generateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

func certificateRequest(commonName string, key *ecdsa.PrivateKey) (string, error) {
	der, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		SignatureAlgorithm: x509.ECDSAWithSHA256,
	}, key)
	if err != nil {
		return "", fmt.Errorf("failed to create certificate request: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: der})), nil
}

// encodeKey writes key as PKCS8, the only form the gateway reads back.
func encodeKey(key *ecdsa.PrivateKey) (string, error) {
	keyPEM, err := identity.PrivateKeyToPEM(key)
	if err != nil {
		return "", fmt.Errorf("failed to encode private key: %w", err)
	}
	return string(keyPEM), nil
}

// authToken builds the Fabric CA token header:
//
//	b64(cert) "." b64(sign(method "." b64(uri) "." b64(body) "." b64(cert)))
func authToken(registrar *Enrollment, method, uri string, body []byte) (string, error) {
	key, err := identity.PrivateKeyFromPEM([]byte(registrar.PrivateKey))
	if err != nil {
		return "", fmt.Errorf("failed to read registrar key: %w", err)
	}
	sign, err := identity.NewPrivateKeySign(key)
	if err != nil {
		return "", fmt.Errorf("failed to read registrar key: %w", err)
	}

	b64 := base64.StdEncoding.EncodeToString
	cert := b64([]byte(registrar.Certificate))
	payload := method + "." + b64([]byte(uri)) + "." + b64(body) + "." + cert

	digest := sha256.Sum256([]byte(payload))
	sig, err := sign(digest[:])
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return cert + "." + b64(sig), nil
}
