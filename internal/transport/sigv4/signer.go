// Package sigv4 signs outbound search backend requests with AWS Signature V4.
package sigv4

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchproxy/internal/domain"
)

// Signer produces SigV4 signatures from ambient credentials. Credentials are
// retrieved from the provider on every signing operation so that externally
// rotated credentials take effect without a restart.
type Signer struct {
	creds  aws.CredentialsProvider
	signer *v4.Signer
	logger *zap.Logger
}

// New creates a Signer over the given credential provider.
func New(creds aws.CredentialsProvider, logger *zap.Logger) *Signer {
	return &Signer{
		creds:  creds,
		signer: v4.NewSigner(),
		logger: logger,
	}
}

// Sign signs req in place for the given service and region. The signature
// covers the method, the canonical path, the content-type header and the
// exact body bytes; the caller must transmit body unmodified.
func (s *Signer) Sign(ctx context.Context, req *http.Request, body []byte, service, region string) error {
	creds, err := s.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("retrieve credentials: %v: %w", err, domain.ErrUpstream)
	}

	req.Header.Set("Content-Type", "application/json")

	hash := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(hash[:])

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, service, region, time.Now().UTC()); err != nil {
		return fmt.Errorf("sign request: %v: %w", err, domain.ErrUpstream)
	}
	return nil
}

// CheckCredentials verifies that the ambient credential chain can produce
// credentials. Used by health checks.
func (s *Signer) CheckCredentials(ctx context.Context) error {
	if _, err := s.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("retrieve credentials: %w", err)
	}
	return nil
}
