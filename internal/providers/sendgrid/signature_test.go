package sendgrid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"
)

func newTestVerifier(t *testing.T) (*Verifier, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshaling public key: %v", err)
	}
	v, err := NewVerifier(base64.StdEncoding.EncodeToString(der))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v, priv
}

func signPayload(t *testing.T, priv *ecdsa.PrivateKey, timestamp string, payload []byte) string {
	t.Helper()
	digest := sha256.Sum256(append([]byte(timestamp), payload...))
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("signing: %v", err)
	}
	return base64.StdEncoding.EncodeToString(sig)
}

func TestVerifyValidSignature(t *testing.T) {
	v, priv := newTestVerifier(t)
	payload := []byte(`[{"event":"open"}]`)
	sig := signPayload(t, priv, "1740000000", payload)
	if !v.Verify(payload, sig, "1740000000") {
		t.Fatal("valid signature rejected")
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	v, priv := newTestVerifier(t)
	payload := []byte(`[{"event":"open"}]`)
	sig := signPayload(t, priv, "1740000000", payload)
	if v.Verify([]byte(`[{"event":"click"}]`), sig, "1740000000") {
		t.Fatal("tampered payload accepted")
	}
}

func TestVerifyTamperedTimestamp(t *testing.T) {
	v, priv := newTestVerifier(t)
	payload := []byte(`[{"event":"open"}]`)
	sig := signPayload(t, priv, "1740000000", payload)
	if v.Verify(payload, sig, "1740000001") {
		t.Fatal("tampered timestamp accepted")
	}
}

func TestVerifyGarbageSignature(t *testing.T) {
	v, _ := newTestVerifier(t)
	payload := []byte(`[]`)
	if v.Verify(payload, "not base64!!!", "1740000000") {
		t.Fatal("undecodable signature accepted")
	}
	if v.Verify(payload, base64.StdEncoding.EncodeToString([]byte("junk")), "1740000000") {
		t.Fatal("junk DER signature accepted")
	}
	if v.Verify(payload, "", "1740000000") {
		t.Fatal("empty signature accepted")
	}
}

func TestVerifyWarnAndAllowMode(t *testing.T) {
	v, err := NewVerifier("")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	if v.Mode != ModeWarnAndAllow {
		t.Fatalf("expected warn-and-allow mode, got %s", v.Mode)
	}
	if !v.Verify([]byte(`[]`), "", "") {
		t.Fatal("warn-and-allow mode must accept everything")
	}
}

func TestNewVerifierRejectsBadKeys(t *testing.T) {
	if _, err := NewVerifier("not base64!!!"); err == nil {
		t.Fatal("expected error for undecodable key")
	}
	if _, err := NewVerifier(base64.StdEncoding.EncodeToString([]byte("junk"))); err == nil {
		t.Fatal("expected error for junk DER")
	}
}
