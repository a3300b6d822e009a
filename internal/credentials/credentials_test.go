package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
	tu "github.com/desertthunder/ytpub/internal/testing"
)

const scope = "ytpub"

type tokenServer struct {
	*httptest.Server
	hits      atomic.Int64
	expiresIn int
	status    int
	delay     time.Duration
}

func newTokenServer(t *testing.T, expiresIn int) *tokenServer {
	ts := &tokenServer{expiresIn: expiresIn, status: http.StatusOK}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := ts.hits.Add(1)
		if ts.delay > 0 {
			time.Sleep(ts.delay)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.Form.Get("grant_type") != "refresh_token" {
			t.Errorf("expected refresh_token grant, got %q", r.Form.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		if ts.status != http.StatusOK {
			w.WriteHeader(ts.status)
			fmt.Fprint(w, `{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`)
			return
		}
		fmt.Fprintf(w, `{"access_token":"access-%d","token_type":"Bearer","expires_in":%d}`, n, ts.expiresIn)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func channel() models.Channel {
	return *models.NewChannel("UC123", "Studio", "owner@example.com")
}

func setup(t *testing.T, ts *tokenServer, connected bool) (*Resolver, *tu.MemorySecrets) {
	t.Helper()
	store := tu.NewMemorySecrets()
	ctx := context.Background()
	require.NoError(t, store.PutSecret(ctx, scope, defaultClientKey, tu.ClientSecretJSON(ts.URL+"/token")))
	if connected {
		require.NoError(t, store.PutSecret(ctx, scope, shared.RefreshTokenKey("owner@example.com"), []byte("refresh-1")))
	}
	return NewResolver(store, ResolverOpts{Scope: scope, HTTPClient: ts.Client()}), store
}

func TestResolver(t *testing.T) {
	ctx := context.Background()

	t.Run("CheckConnected without network", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, _ := setup(t, ts, false)

		err := r.CheckConnected(ctx, channel())
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrAccountNotConnected))
		assert.EqualValues(t, 0, ts.hits.Load())

		_, err = r.Resolve(ctx, channel())
		assert.True(t, errors.Is(err, shared.ErrAccountNotConnected))
		assert.EqualValues(t, 0, ts.hits.Load())
	})

	t.Run("empty refresh token is not connected", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, store := setup(t, ts, false)
		require.NoError(t, store.PutSecret(ctx, scope, shared.RefreshTokenKey("owner@example.com"), []byte("  ")))

		assert.True(t, errors.Is(r.CheckConnected(ctx, channel()), shared.ErrAccountNotConnected))
	})

	t.Run("missing client blob", func(t *testing.T) {
		store := tu.NewMemorySecrets()
		require.NoError(t, store.PutSecret(ctx, scope, shared.RefreshTokenKey("owner@example.com"), []byte("rt")))
		r := NewResolver(store, ResolverOpts{Scope: scope})

		_, err := r.Resolve(ctx, channel())
		assert.True(t, errors.Is(err, shared.ErrMissingCredentials))
	})

	t.Run("resolve is lazy", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, _ := setup(t, ts, true)

		cred, err := r.Resolve(ctx, channel())
		require.NoError(t, err)
		assert.Equal(t, "owner@example.com", cred.Email())
		assert.True(t, cred.Expiry().IsZero())
		assert.EqualValues(t, 0, ts.hits.Load())
	})

	t.Run("token cached while far from expiry", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, _ := setup(t, ts, true)
		cred, err := r.Resolve(ctx, channel())
		require.NoError(t, err)

		first, err := cred.Token()
		require.NoError(t, err)
		second, err := cred.Token()
		require.NoError(t, err)

		assert.Equal(t, first.AccessToken, second.AccessToken)
		assert.EqualValues(t, 1, ts.hits.Load())
	})

	t.Run("refreshes at or below threshold", func(t *testing.T) {
		ts := newTokenServer(t, 300)
		r, _ := setup(t, ts, true)
		cred, err := r.Resolve(ctx, channel())
		require.NoError(t, err)

		first, err := cred.Token()
		require.NoError(t, err)
		second, err := cred.Token()
		require.NoError(t, err)

		assert.NotEqual(t, first.AccessToken, second.AccessToken)
		assert.EqualValues(t, 2, ts.hits.Load())
	})

	t.Run("refresh when clock passes threshold", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, _ := setup(t, ts, true)
		cred, err := r.Resolve(ctx, channel())
		require.NoError(t, err)

		_, err = cred.Token()
		require.NoError(t, err)

		r.now = func() time.Time { return time.Now().Add(3600*time.Second - RefreshThreshold) }
		_, err = cred.Token()
		require.NoError(t, err)
		assert.EqualValues(t, 2, ts.hits.Load())
	})

	t.Run("refresh failure", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		ts.status = http.StatusBadRequest
		r, _ := setup(t, ts, true)
		cred, err := r.Resolve(ctx, channel())
		require.NoError(t, err)

		_, err = cred.Token()
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrCredentialRefreshFailed))
		assert.Nil(t, cred.token)
	})

	t.Run("concurrent refreshes coalesce", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		ts.delay = 50 * time.Millisecond
		r, _ := setup(t, ts, true)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				cred, err := r.Resolve(ctx, channel())
				if err != nil {
					t.Errorf("resolve: %v", err)
					return
				}
				if _, err := cred.Token(); err != nil {
					t.Errorf("token: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Less(t, ts.hits.Load(), int64(5))
	})

	t.Run("a cancelled caller does not fail a coalesced refresh", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		ts.delay = 100 * time.Millisecond
		r, _ := setup(t, ts, true)

		started := make(chan struct{}, 1)
		r.onFetch = func(string) { started <- struct{}{} }

		first, err := r.Resolve(ctx, channel())
		require.NoError(t, err)
		second, err := r.Resolve(ctx, channel())
		require.NoError(t, err)

		short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		firstErr := make(chan error, 1)
		go func() {
			_, err := first.TokenContext(short)
			firstErr <- err
		}()
		<-started

		tok, err := second.TokenContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "access-1", tok.AccessToken)

		err = <-firstErr
		assert.ErrorIs(t, err, shared.ErrCredentialRefreshFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.EqualValues(t, 1, ts.hits.Load())
	})

	t.Run("connect and disconnect", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		r, _ := setup(t, ts, false)
		ch := channel()

		err := r.Connect(ctx, ch, &oauth2.Token{AccessToken: "a"})
		assert.True(t, errors.Is(err, shared.ErrMissingCredentials))

		require.NoError(t, r.Connect(ctx, ch, &oauth2.Token{AccessToken: "a", RefreshToken: "rt"}))
		assert.NoError(t, r.CheckConnected(ctx, ch))

		require.NoError(t, r.Disconnect(ctx, ch))
		assert.True(t, errors.Is(r.CheckConnected(ctx, ch), shared.ErrAccountNotConnected))
	})

	t.Run("connect verifies the consenting account owns the channel", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		store := tu.NewMemorySecrets()
		var seen string
		owned := []string{"UCother"}
		r := NewResolver(store, ResolverOpts{
			Scope: scope,
			Owner: func(_ context.Context, src oauth2.TokenSource) ([]string, error) {
				tok, err := src.Token()
				if err != nil {
					return nil, err
				}
				seen = tok.AccessToken
				return owned, nil
			},
		})
		ch := channel()
		token := &oauth2.Token{AccessToken: "consent-access", RefreshToken: "rt"}

		err := r.Connect(ctx, ch, token)
		assert.ErrorIs(t, err, shared.ErrChannelNotOwned)
		assert.Equal(t, "consent-access", seen)
		assert.ErrorIs(t, r.CheckConnected(ctx, ch), shared.ErrAccountNotConnected)

		owned = []string{"UCother", ch.ExternalID}
		require.NoError(t, r.Connect(ctx, ch, token))
		assert.NoError(t, r.CheckConnected(ctx, ch))
		assert.Zero(t, ts.hits.Load())
	})

	t.Run("connect surfaces channel lookup failures", func(t *testing.T) {
		store := tu.NewMemorySecrets()
		r := NewResolver(store, ResolverOpts{
			Scope: scope,
			Owner: func(context.Context, oauth2.TokenSource) ([]string, error) {
				return nil, shared.ErrAPIRequest
			},
		})

		err := r.Connect(ctx, channel(), &oauth2.Token{AccessToken: "a", RefreshToken: "rt"})
		assert.ErrorIs(t, err, shared.ErrAPIRequest)
		assert.NotErrorIs(t, err, shared.ErrChannelNotOwned)
	})

	t.Run("oauth config uses configured redirect", func(t *testing.T) {
		ts := newTokenServer(t, 3600)
		store := tu.NewMemorySecrets()
		require.NoError(t, store.PutSecret(ctx, scope, "custom", tu.ClientSecretJSON(ts.URL)))
		r := NewResolver(store, ResolverOpts{Scope: scope, ClientKey: "custom", RedirectURL: "http://localhost:9999/callback"})

		config, err := r.OAuthConfig(ctx)
		require.NoError(t, err)
		assert.Equal(t, "client-id", config.ClientID)
		assert.Equal(t, "http://localhost:9999/callback", config.RedirectURL)
		assert.ElementsMatch(t, Scopes, config.Scopes)
	})
}
