// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/ytpub/internal/secrets"
	"github.com/desertthunder/ytpub/internal/shared"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// CountingTransport counts requests before delegating to Next (or [http.DefaultTransport]).
type CountingTransport struct {
	Next  http.RoundTripper
	calls atomic.Int64
}

func (c *CountingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls.Add(1)
	next := c.Next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(r)
}

// Calls returns the number of requests seen so far.
func (c *CountingTransport) Calls() int {
	return int(c.calls.Load())
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MemorySecrets is an in-memory [secrets.Writer].
type MemorySecrets struct {
	mu    sync.Mutex
	data  map[string][]byte
	reads atomic.Int64
}

func NewMemorySecrets() *MemorySecrets {
	return &MemorySecrets{data: map[string][]byte{}}
}

func (m *MemorySecrets) Secret(_ context.Context, scope, key string) ([]byte, error) {
	m.reads.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[scope+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", secrets.ErrNotFound, scope, key)
	}
	return v, nil
}

func (m *MemorySecrets) PutSecret(_ context.Context, scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[scope+"/"+key] = value
	return nil
}

func (m *MemorySecrets) DeleteSecret(_ context.Context, scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[scope+"/"+key]; !ok {
		return fmt.Errorf("%w: %s/%s", secrets.ErrNotFound, scope, key)
	}
	delete(m.data, scope+"/"+key)
	return nil
}

// Reads returns how many lookups were made.
func (m *MemorySecrets) Reads() int {
	return int(m.reads.Load())
}

// ClientSecretJSON returns a Google "installed" client blob whose token endpoint is tokenURL.
func ClientSecretJSON(tokenURL string) []byte {
	return fmt.Appendf(nil, `{"installed":{"client_id":"client-id","client_secret":"client-secret",`+
		`"auth_uri":"https://accounts.example.com/o/oauth2/auth","token_uri":%q,`+
		`"redirect_uris":["http://127.0.0.1:3000/callback"]}}`, tokenURL)
}

// MustDB opens an in-memory database with migrations applied, closed at test cleanup.
func MustDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

// ErrReader fails every Read with Err.
type ErrReader struct {
	Err error
}

func (e ErrReader) Read([]byte) (int, error) {
	return 0, e.Err
}

var _ io.Reader = ErrReader{}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
