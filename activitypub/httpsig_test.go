package activitypub

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"strings"
	"testing"
	"time"
)

// signedTestRequest builds a POST with Date, Host and Digest headers and
// signs it with the given key.
func signedTestRequest(t *testing.T, body []byte, keypair *TestKeyPair, keyId string) *http.Request {
	t.Helper()

	req, err := http.NewRequest("POST", "https://local.example.com/users/alice/inbox", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	hash := sha256.Sum256(body)
	digest := "SHA-256=" + base64.StdEncoding.EncodeToString(hash[:])

	req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	req.Header.Set("Host", req.URL.Host)
	req.Header.Set("Digest", digest)
	req.Header.Set("Content-Type", "application/activity+json")

	if err := SignRequest(req, keypair.Private, keyId); err != nil {
		t.Fatalf("Failed to sign request: %v", err)
	}
	return req
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	body := []byte(`{"type":"Follow"}`)
	keyId := "https://remote.example.com/users/bob#main-key"
	req := signedTestRequest(t, body, keypair, keyId)

	if req.Header.Get("Signature") == "" {
		t.Fatal("Expected Signature header to be set")
	}

	actorURI, err := VerifyRequest(req, keypair.PublicPEM)
	if err != nil {
		t.Fatalf("Verification failed: %v", err)
	}
	if actorURI != "https://remote.example.com/users/bob" {
		t.Errorf("Expected actor URI from keyId, got '%s'", actorURI)
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}
	otherKeypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	req := signedTestRequest(t, []byte(`{}`), keypair, "https://remote.example.com/users/bob#main-key")

	if _, err := VerifyRequest(req, otherKeypair.PublicPEM); err == nil {
		t.Error("Expected verification to fail with wrong key")
	}
}

func TestVerifyRejectsTamperedDate(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	req := signedTestRequest(t, []byte(`{}`), keypair, "https://remote.example.com/users/bob#main-key")
	req.Header.Set("Date", time.Now().UTC().Add(time.Hour).Format(http.TimeFormat))

	if _, err := VerifyRequest(req, keypair.PublicPEM); err == nil {
		t.Error("Expected verification to fail after Date tamper")
	}
}

func TestParsePrivateKeyPKCS8(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	key, err := ParsePrivateKey(keypair.PrivatePEM)
	if err != nil {
		t.Fatalf("Failed to parse PKCS#8 private key: %v", err)
	}
	if key.N.Cmp(keypair.Private.N) != 0 {
		t.Error("Parsed key does not match original")
	}
}

func TestParsePrivateKeyPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	pemString := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))

	parsed, err := ParsePrivateKey(pemString)
	if err != nil {
		t.Fatalf("Failed to parse PKCS#1 private key: %v", err)
	}
	if parsed.N.Cmp(key.N) != 0 {
		t.Error("Parsed key does not match original")
	}
}

func TestParsePrivateKeyGarbage(t *testing.T) {
	if _, err := ParsePrivateKey("not a pem block"); err == nil {
		t.Error("Expected error for garbage input")
	}
	if _, err := ParsePrivateKey(""); err == nil {
		t.Error("Expected error for empty input")
	}
}

func TestParsePublicKeyPKIX(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	key, err := ParsePublicKey(keypair.PublicPEM)
	if err != nil {
		t.Fatalf("Failed to parse PKIX public key: %v", err)
	}
	if key.N.Cmp(keypair.Private.N) != 0 {
		t.Error("Parsed key does not match original")
	}
}

func TestParsePublicKeyPKCS1(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}
	pemString := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PUBLIC KEY",
		Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey),
	}))

	parsed, err := ParsePublicKey(pemString)
	if err != nil {
		t.Fatalf("Failed to parse PKCS#1 public key: %v", err)
	}
	if parsed.N.Cmp(key.N) != 0 {
		t.Error("Parsed key does not match original")
	}
}

func TestParsePublicKeyGarbage(t *testing.T) {
	if _, err := ParsePublicKey("-----BEGIN PUBLIC KEY-----\nZm9v\n-----END PUBLIC KEY-----"); err == nil {
		t.Error("Expected error for invalid key bytes")
	}
}

func TestVerifyRequestMissingSignature(t *testing.T) {
	keypair, err := GenerateTestKeyPair()
	if err != nil {
		t.Fatalf("Failed to generate key pair: %v", err)
	}

	req, _ := http.NewRequest("POST", "https://local.example.com/users/alice/inbox", strings.NewReader("{}"))
	if _, err := VerifyRequest(req, keypair.PublicPEM); err == nil {
		t.Error("Expected error for unsigned request")
	}
}
