package sendgrid

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
)

// Event webhook headers, fixed by the provider's convention.
const (
	SignatureHeader = "X-Twilio-Email-Event-Webhook-Signature"
	TimestampHeader = "X-Twilio-Email-Event-Webhook-Timestamp"
)

type VerificationMode int

const (
	// ModeEnforce rejects any batch whose signature does not verify.
	ModeEnforce VerificationMode = iota
	// ModeWarnAndAllow accepts every batch. Selected only when no verification
	// key is configured, so a fresh deployment can receive events before the
	// key has been provisioned. Callers must warn on every allowed batch.
	ModeWarnAndAllow
)

func (m VerificationMode) String() string {
	if m == ModeWarnAndAllow {
		return "warn_and_allow"
	}
	return "enforce"
}

type Verifier struct {
	Mode VerificationMode
	key  *ecdsa.PublicKey
}

// NewVerifier parses a base64-encoded DER/SPKI P-256 public key. An empty key
// selects ModeWarnAndAllow.
func NewVerifier(b64Key string) (*Verifier, error) {
	if b64Key == "" {
		return &Verifier{Mode: ModeWarnAndAllow}, nil
	}
	der, err := base64.StdEncoding.DecodeString(b64Key)
	if err != nil {
		return nil, fmt.Errorf("decoding webhook public key: %w", err)
	}
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing webhook public key: %w", err)
	}
	ecKey, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("webhook public key is not an ECDSA key")
	}
	return &Verifier{Mode: ModeEnforce, key: ecKey}, nil
}

// Verify checks the ECDSA signature over timestamp+payload. The payload must
// be the raw request body, byte for byte, before any parsing. Malformed input
// verifies false; it never errors.
func (v *Verifier) Verify(payload []byte, signature, timestamp string) bool {
	if v.Mode == ModeWarnAndAllow {
		return true
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(append([]byte(timestamp), payload...))
	return ecdsa.VerifyASN1(v.key, digest[:], sig)
}
