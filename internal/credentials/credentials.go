package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/secrets"
	"github.com/desertthunder/ytpub/internal/shared"
)

const (
	// RefreshThreshold is the remaining validity at or below which a token is refreshed.
	RefreshThreshold = 300 * time.Second

	defaultRefreshTimeout = 30 * time.Second
	defaultClientKey      = "youtube-oauth-client"
)

// Scopes requested for connected accounts: upload plus metadata and thumbnail edits.
var Scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeForceSslScope}

// OwnerLookup lists the channel ids owned by the account behind ts.
type OwnerLookup func(ctx context.Context, ts oauth2.TokenSource) ([]string, error)

// ResolverOpts configures a [Resolver].
type ResolverOpts struct {
	Scope          string       // secret project scope
	ClientKey      string       // name of the shared OAuth client blob
	RedirectURL    string       // used by the consent flow only
	HTTPClient     *http.Client // client for the token endpoint
	RefreshTimeout time.Duration
	Owner          OwnerLookup // when set, Connect rejects accounts that do not own the channel
}

// Resolver produces credentials bound to a channel's owning account.
type Resolver struct {
	store   secrets.Store
	opts    ResolverOpts
	group   singleflight.Group
	now     func() time.Time
	onFetch func(email string) // observes token endpoint calls
}

// NewResolver creates a [Resolver] reading from store.
func NewResolver(store secrets.Store, opts ResolverOpts) *Resolver {
	if opts.ClientKey == "" {
		opts.ClientKey = defaultClientKey
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = defaultRefreshTimeout
	}
	return &Resolver{store: store, opts: opts, now: time.Now}
}

// CheckConnected reports [shared.ErrAccountNotConnected] when no refresh token is stored
// for the channel's owner. It makes no network call.
func (r *Resolver) CheckConnected(ctx context.Context, ch models.Channel) error {
	_, err := r.refreshToken(ctx, ch)
	return err
}

// Resolve returns a lazily refreshing [Credential] for the channel's owner.
func (r *Resolver) Resolve(ctx context.Context, ch models.Channel) (*Credential, error) {
	rt, err := r.refreshToken(ctx, ch)
	if err != nil {
		return nil, err
	}

	config, err := r.OAuthConfig(ctx)
	if err != nil {
		return nil, err
	}

	return &Credential{
		email:        ch.OwnerEmail,
		refreshToken: rt,
		config:       config,
		resolver:     r,
	}, nil
}

// OAuthConfig parses the shared client blob into an [oauth2.Config].
func (r *Resolver) OAuthConfig(ctx context.Context) (*oauth2.Config, error) {
	blob, err := r.store.Secret(ctx, r.opts.Scope, r.opts.ClientKey)
	if errors.Is(err, secrets.ErrNotFound) {
		return nil, fmt.Errorf("%w: OAuth client secret %q", shared.ErrMissingCredentials, r.opts.ClientKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read OAuth client secret: %w", err)
	}

	config, err := google.ConfigFromJSON(blob, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: OAuth client secret: %v", shared.ErrInvalidConfig, err)
	}
	if r.opts.RedirectURL != "" {
		config.RedirectURL = r.opts.RedirectURL
	}

	return config, nil
}

// Connect stores the refresh token obtained from a consent flow for the channel's owner.
//
// With an [OwnerLookup] configured, the consenting account must own ch.ExternalID or
// [shared.ErrChannelNotOwned] is returned and nothing is stored.
func (r *Resolver) Connect(ctx context.Context, ch models.Channel, token *oauth2.Token) error {
	w, ok := r.store.(secrets.Writer)
	if !ok {
		return fmt.Errorf("%w: secret store is read-only", shared.ErrNotImplemented)
	}
	if token == nil || token.RefreshToken == "" {
		return fmt.Errorf("%w: consent did not return a refresh token", shared.ErrMissingCredentials)
	}
	if err := r.verifyOwner(ctx, ch, token); err != nil {
		return err
	}
	return w.PutSecret(ctx, r.opts.Scope, secretKey(ch), []byte(token.RefreshToken))
}

func (r *Resolver) verifyOwner(ctx context.Context, ch models.Channel, token *oauth2.Token) error {
	if r.opts.Owner == nil {
		return nil
	}

	owned, err := r.opts.Owner(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return fmt.Errorf("failed to list channels of %s: %w", ch.OwnerEmail, err)
	}
	if !slices.Contains(owned, ch.ExternalID) {
		return fmt.Errorf("%w: consenting account owns %v, not %s (%s)",
			shared.ErrChannelNotOwned, owned, ch.ExternalID, ch.Name)
	}
	return nil
}

// Disconnect removes the stored refresh token for the channel's owner.
func (r *Resolver) Disconnect(ctx context.Context, ch models.Channel) error {
	w, ok := r.store.(secrets.Writer)
	if !ok {
		return fmt.Errorf("%w: secret store is read-only", shared.ErrNotImplemented)
	}
	return w.DeleteSecret(ctx, r.opts.Scope, secretKey(ch))
}

func (r *Resolver) refreshToken(ctx context.Context, ch models.Channel) (string, error) {
	key := secretKey(ch)
	value, err := r.store.Secret(ctx, r.opts.Scope, key)
	if errors.Is(err, secrets.ErrNotFound) {
		return "", fmt.Errorf("%w: %s (%s)", shared.ErrAccountNotConnected, ch.OwnerEmail, ch.Name)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token for %s: %w", ch.OwnerEmail, err)
	}

	rt := strings.TrimSpace(string(value))
	if rt == "" {
		return "", fmt.Errorf("%w: %s has an empty refresh token", shared.ErrAccountNotConnected, ch.OwnerEmail)
	}
	return rt, nil
}

func secretKey(ch models.Channel) string {
	if ch.SecretKey != "" {
		return ch.SecretKey
	}
	return shared.RefreshTokenKey(ch.OwnerEmail)
}

// fetch exchanges the refresh token at the token endpoint, coalescing concurrent calls per email.
//
// The shared exchange is bounded by RefreshTimeout only; each caller stops waiting when its own
// ctx ends.
func (r *Resolver) fetch(ctx context.Context, email, refreshToken string, config *oauth2.Config) (*oauth2.Token, error) {
	results := r.group.DoChan(email, func() (any, error) {
		if r.onFetch != nil {
			r.onFetch(email)
		}

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.RefreshTimeout)
		defer cancel()
		if r.opts.HTTPClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, r.opts.HTTPClient)
		}

		// A seed without an access token forces the source to hit the token endpoint.
		return config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	})

	select {
	case res := <-results:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrCredentialRefreshFailed, email, res.Err)
		}
		return res.Val.(*oauth2.Token), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", shared.ErrCredentialRefreshFailed, email, ctx.Err())
	}
}

// Credential is ephemeral authorization material for one account email. It lives for one
// publish attempt and is never persisted.
type Credential struct {
	email        string
	config       *oauth2.Config
	resolver     *Resolver
	mu           sync.Mutex
	refreshToken string
	token        *oauth2.Token
}

// Email returns the account the credential is bound to.
func (c *Credential) Email() string {
	return c.email
}

// Expiry returns the expiry of the cached access token, or the zero time.
func (c *Credential) Expiry() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return time.Time{}
	}
	return c.token.Expiry
}

// Token implements [oauth2.TokenSource].
func (c *Credential) Token() (*oauth2.Token, error) {
	return c.TokenContext(context.Background())
}

// TokenContext returns a token with more than [RefreshThreshold] of validity, refreshing first if needed.
func (c *Credential) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh() {
		return c.token, nil
	}

	tok, err := c.resolver.fetch(ctx, c.email, c.refreshToken, c.config)
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken != "" {
		c.refreshToken = tok.RefreshToken
	}
	c.token = tok

	return tok, nil
}

func (c *Credential) fresh() bool {
	if c.token == nil || c.token.AccessToken == "" {
		return false
	}
	if c.token.Expiry.IsZero() {
		return true
	}
	return c.token.Expiry.Sub(c.resolver.now()) > RefreshThreshold
}
