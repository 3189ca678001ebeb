// Package ca is a small client for the Hyperledger Fabric CA REST API.
//
// It covers what the admin routes need: enrolling an identity with an
// enrollment secret and registering a new identity on behalf of a
// registrar. Keys are ECDSA P-256, generated locally; only the CSR
// leaves the process.
package ca

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/deppfellow/candychain/internal/config"
)

const (
	enrollPath   = "/api/v1/enroll"
	registerPath = "/api/v1/register"
	infoPath     = "/api/v1/cainfo"
)

// Enrollment is the PEM material returned by a successful enroll.
type Enrollment struct {
	Certificate string
	PrivateKey  string
}

// RegistrationRequest describes the identity to register. The CA
// generates the enrollment secret.
type RegistrationRequest struct {
	Name        string `json:"id"`
	Type        string `json:"type,omitempty"`
	Affiliation string `json:"affiliation"`
	CAName      string `json:"caname,omitempty"`
}

// ResponseMessage is one entry of the "errors" array of a CA response.
type ResponseMessage struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error is returned when the CA answers with success=false.
type Error struct {
	Operation  string
	StatusCode int
	Errors     []ResponseMessage
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Errors))
	for i, m := range e.Errors {
		parts[i] = fmt.Sprintf("code: %d, message: %s", m.Code, m.Message)
	}
	return fmt.Sprintf("fabric-ca request %s failed with errors [%s]", e.Operation, strings.Join(parts, "; "))
}

type response struct {
	Success bool              `json:"success"`
	Result  json.RawMessage   `json:"result"`
	Errors  []ResponseMessage `json:"errors"`
}

// Client talks to one Fabric CA server.
type Client struct {
	baseURL string
	caName  string
	http    *http.Client
}

// New builds a client from config. A TLS certificate path adds that
// certificate as the only trusted root.
func New(cfg config.CAConfig) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.TLSCertPath != "" {
		pem, err := os.ReadFile(cfg.TLSCertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA TLS certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("CA TLS certificate contains no PEM certificates")
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		caName:  cfg.Name,
		http: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
		},
	}, nil
}

// Enroll generates a key pair and has the CA sign a certificate for it,
// authenticating with the enrollment id and secret.
func (c *Client) Enroll(ctx context.Context, enrollmentID, secret string) (*Enrollment, error) {
	key, err := generateKey()
	if err != nil {
		return nil, err
	}

	csr, err := certificateRequest(enrollmentID, key)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{
		"certificate_request": csr,
		"caname":              c.caName,
	})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, enrollPath, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(enrollmentID, secret)

	var result struct {
		Cert string `json:"Cert"`
	}
	if err := c.do(req, "enroll", &result); err != nil {
		return nil, err
	}

	cert, err := base64.StdEncoding.DecodeString(result.Cert)
	if err != nil {
		return nil, fmt.Errorf("failed to decode enrollment certificate: %w", err)
	}

	keyPEM, err := encodeKey(key)
	if err != nil {
		return nil, err
	}

	return &Enrollment{Certificate: string(cert), PrivateKey: keyPEM}, nil
}

// Register creates a new identity and returns its enrollment secret. The
// registrar signs the request.
func (c *Client) Register(ctx context.Context, reg RegistrationRequest, registrar *Enrollment) (string, error) {
	if registrar == nil {
		return "", errors.New("register requires a registrar enrollment")
	}
	if reg.CAName == "" {
		reg.CAName = c.caName
	}

	body, err := json.Marshal(reg)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, registerPath, body)
	if err != nil {
		return "", err
	}

	token, err := authToken(registrar, http.MethodPost, req.URL.RequestURI(), body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", token)

	var result struct {
		Secret string `json:"secret"`
	}
	if err := c.do(req, "register", &result); err != nil {
		return "", err
	}
	return result.Secret, nil
}

// Ping fetches the CA info, which needs no authentication.
func (c *Client) Ping(ctx context.Context) error {
	body, err := json.Marshal(map[string]string{"caname": c.caName})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, infoPath, body)
	if err != nil {
		return err
	}
	return c.do(req, "cainfo", nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fabric-ca request %s failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read fabric-ca %s response: %w", operation, err)
	}

	var parsed response
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("fabric-ca %s returned status %d with an unreadable body: %w", operation, resp.StatusCode, err)
	}

	if !parsed.Success {
		return &Error{Operation: operation, StatusCode: resp.StatusCode, Errors: parsed.Errors}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(parsed.Result, out); err != nil {
		return fmt.Errorf("failed to decode fabric-ca %s result: %w", operation, err)
	}
	return nil
}
