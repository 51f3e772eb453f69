package activitypub

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pictodon/pictodon/domain"
	"github.com/pictodon/pictodon/queue"
	"github.com/pictodon/pictodon/util"
	"github.com/google/uuid"
)

// errUniqueConstraint mimics the sqlite driver's error text for a
// violated UNIQUE index.
var errUniqueConstraint = errors.New("constraint failed: UNIQUE constraint failed (1555)")

func epoch() time.Time {
	return time.Unix(0, 0)
}

func timeNow() time.Time {
	return time.Now()
}

// TestKeyPair holds a generated RSA key pair in PEM form
type TestKeyPair struct {
	Private    *rsa.PrivateKey
	PrivatePEM string
	PublicPEM  string
}

// GenerateTestKeyPair generates an RSA key pair for signing tests
func GenerateTestKeyPair() (*TestKeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}

	privBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return &TestKeyPair{
		Private:    key,
		PrivatePEM: string(privPEM),
		PublicPEM:  string(pubPEM),
	}, nil
}

// CreateTestAccount builds a local account with the given key pair
func CreateTestAccount(username string, keypair *TestKeyPair) *domain.Account {
	return &domain.Account{
		Id:            uuid.New(),
		Username:      username,
		WebPublicKey:  keypair.PublicPEM,
		WebPrivateKey: keypair.PrivatePEM,
		CreatedAt:     time.Now(),
	}
}

// CreateTestRemoteAccount builds a remote account whose key material and
// cache timestamp are current
func CreateTestRemoteAccount(username, domainName, publicKeyPEM string) *domain.RemoteAccount {
	actorURI := "https://" + domainName + "/users/" + username
	return &domain.RemoteAccount{
		Id:            uuid.New(),
		Username:      username,
		Domain:        domainName,
		ActorURI:      actorURI,
		InboxURI:      actorURI + "/inbox",
		PublicKeyPem:  publicKeyPEM,
		LastFetchedAt: time.Now(),
	}
}

// MockHTTPClient records outgoing requests and serves canned responses
type MockHTTPClient struct {
	mu        sync.Mutex
	Requests  []*http.Request
	Bodies    [][]byte
	responses map[string]mockResponse
	Err       error
}

type mockResponse struct {
	status int
	body   []byte
}

func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{responses: make(map[string]mockResponse)}
}

// SetResponse registers a canned response for the given URL
func (m *MockHTTPClient) SetResponse(url string, status int, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[url] = mockResponse{status: status, body: body}
}

// SetActorResponse registers a JSON actor document for the given URI
func (m *MockHTTPClient) SetActorResponse(actorURI string, actor *ActorResponse) {
	body, _ := json.Marshal(actor)
	m.SetResponse(actorURI, 200, body)
}

func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	m.Requests = append(m.Requests, req)
	m.Bodies = append(m.Bodies, body)

	resp, ok := m.responses[req.URL.String()]
	if !ok {
		return &http.Response{StatusCode: 404, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}
	return &http.Response{StatusCode: resp.status, Body: io.NopCloser(bytes.NewReader(resp.body))}, nil
}

// RequestCount returns the number of requests seen so far
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// MockQueue captures enqueued jobs without running them
type MockQueue struct {
	mu       sync.Mutex
	Enqueued []MockJob
	Err      error
}

type MockJob struct {
	Kind    string
	Payload []byte
}

func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

func (q *MockQueue) Enqueue(kind string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	q.Enqueued = append(q.Enqueued, MockJob{Kind: kind, Payload: data})
	return nil
}

func (q *MockQueue) Register(kind string, handler queue.HandlerFunc) {}
func (q *MockQueue) OnError(fn queue.ErrorFunc)                     {}
func (q *MockQueue) Start()                                         {}
func (q *MockQueue) Stop()                                          {}

// JobsOfKind returns the captured payloads for one job kind
func (q *MockQueue) JobsOfKind(kind string) []MockJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	var jobs []MockJob
	for _, job := range q.Enqueued {
		if job.Kind == kind {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

var _ queue.Queue = (*MockQueue)(nil)

// testConf builds a minimal configuration for the given local domain
func testConf(domainName string) *util.AppConfig {
	conf := &util.AppConfig{}
	conf.Conf.Domain = domainName
	conf.Conf.DeliveryTimeout = 5
	return conf
}

// testDeps wires mocks into a dependency set
func testDeps(db *MockDatabase, client *MockHTTPClient, q *MockQueue, domainName string) *Deps {
	return &Deps{
		Database:   db,
		HTTPClient: client,
		Queue:      q,
		Conf:       testConf(domainName),
	}
}
