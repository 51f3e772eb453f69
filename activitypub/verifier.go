package activitypub

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pictodon/pictodon/domain"
)

// Verification errors. All of them are terminal for the request or job
// that carries them: a forged or stale-keyed request does not become
// valid by retrying.
var (
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrKeyFetch             = errors.New("key fetch failed")
)

// allowed signature algorithms; an absent algorithm parameter is also
// accepted since hs2019 senders commonly omit it
var supportedAlgorithms = map[string]bool{
	"rsa-sha256": true,
	"hs2019":     true,
}

// ValidateAlgorithm checks the declared algorithm in the Signature
// header. It runs before any network or database access so malformed
// requests are rejected cheaply.
func ValidateAlgorithm(r *http.Request) error {
	signature := r.Header.Get("Signature")
	if signature == "" {
		return fmt.Errorf("%w: missing Signature header", ErrInvalidSignature)
	}

	algorithm := signatureParam(signature, "algorithm")
	if algorithm == "" {
		return nil
	}
	if !supportedAlgorithms[algorithm] {
		return fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
	return nil
}

// signatureParam extracts one parameter from a Signature header value of
// the form `keyId="...",algorithm="...",headers="...",signature="..."`.
func signatureParam(header, name string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		key, value, found := strings.Cut(part, "=")
		if !found || key != name {
			continue
		}
		return strings.Trim(value, `"`)
	}
	return ""
}

// ValidateSignature verifies the request signature against actorURI's
// public key. When verification fails with a cached key it invalidates
// the cache entry and retries exactly once with a freshly fetched key,
// which tolerates remote key rotation.
func ValidateSignature(r *http.Request, actorURI string, deps *Deps) (*domain.RemoteAccount, error) {
	actor, err := GetOrFetchActor(actorURI, deps.HTTPClient, deps.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyFetch, actorURI, err)
	}

	if _, err := VerifyRequest(r, actor.PublicKeyPem); err == nil {
		return actor, nil
	}

	// Cached key did not verify; force a refetch in case the remote
	// rotated its key since we cached it.
	log.Printf("Verifier: signature failed with cached key for %s, refetching", actorURI)
	if err := deps.Database.InvalidateRemoteAccountKey(actor.Id); err != nil {
		log.Printf("Verifier: failed to invalidate cached key for %s: %v", actorURI, err)
	}

	fresh, err := FetchRemoteActor(actorURI, deps.HTTPClient, deps.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrKeyFetch, actorURI, err)
	}

	if _, err := VerifyRequest(r, fresh.PublicKeyPem); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSignature, actorURI, err)
	}
	return fresh, nil
}
