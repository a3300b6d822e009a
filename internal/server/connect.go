package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const pendingConnectTTL = 10 * time.Minute

// Connector stores consent results for a channel owner. Implemented by credentials.Resolver.
type Connector interface {
	OAuthConfig(ctx context.Context) (*oauth2.Config, error)
	Connect(ctx context.Context, ch models.Channel, token *oauth2.Token) error
}

// ChannelReader loads channels. Implemented by repositories.ChannelRepository.
type ChannelReader interface {
	Get(id string) (*models.Channel, error)
}

type pendingConnect struct {
	channel models.Channel
	expires time.Time
}

// ConnectHandler runs the consent flow for channel owners through a long-running server.
//
// Unlike [OAuthHandler] it accepts any number of flows; each state token is good for one
// callback within ten minutes.
type ConnectHandler struct {
	connector Connector
	channels  ChannelReader
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[string]pendingConnect
}

// NewConnectHandler creates a [ConnectHandler].
func NewConnectHandler(connector Connector, channels ChannelReader, logger *log.Logger) *ConnectHandler {
	return &ConnectHandler{
		connector: connector,
		channels:  channels,
		logger:    logger,
		now:       time.Now,
		pending:   map[string]pendingConnect{},
	}
}

// Register mounts the handler's endpoints on r.
func (h *ConnectHandler) Register(r *BasicRouter) {
	r.HandleFunc(http.MethodGet, "/channels/{id}/connect", h.Start)
	r.HandleFunc(http.MethodGet, "/callback", h.Callback)
}

// Start redirects to the consent page for the owner of the channel in the path.
func (h *ConnectHandler) Start(w http.ResponseWriter, r *http.Request) {
	ch, err := h.channels.Get(r.PathValue("id"))
	if errors.Is(err, shared.ErrChannelNotFound) {
		http.Error(w, "Channel not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load channel", "err", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	config, err := h.connector.OAuthConfig(r.Context())
	if err != nil {
		h.logger.Error("OAuth client unavailable", "err", err)
		http.Error(w, "OAuth client is not configured", http.StatusServiceUnavailable)
		return
	}

	state, err := shared.GenerateState()
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	h.mu.Lock()
	h.prune()
	h.pending[state] = pendingConnect{channel: *ch, expires: h.now().Add(pendingConnectTTL)}
	h.mu.Unlock()

	http.Redirect(w, r, consentURL(config, state, ch.OwnerEmail), http.StatusFound)
}

// Callback exchanges the code and stores the refresh token for the channel that started the flow.
func (h *ConnectHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	h.mu.Lock()
	p, ok := h.pending[q.Get("state")]
	delete(h.pending, q.Get("state"))
	h.mu.Unlock()

	if !ok || h.now().After(p.expires) {
		http.Error(w, "Invalid or expired state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.logger.Warn("consent denied", "channel", p.channel.Name, "error", q.Get("error"))
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exchangeTimeout)
	defer cancel()

	config, err := h.connector.OAuthConfig(ctx)
	if err != nil {
		http.Error(w, "OAuth client is not configured", http.StatusServiceUnavailable)
		return
	}

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("token exchange failed", "channel", p.channel.Name, "err", err)
		http.Error(w, "Token exchange failed", http.StatusBadGateway)
		return
	}

	err = h.connector.Connect(ctx, p.channel, token)
	if errors.Is(err, shared.ErrChannelNotOwned) {
		h.logger.Warn("consent from an account that does not own the channel", "channel", p.channel.Name, "err", err)
		http.Error(w, "The authorized account does not own this channel", http.StatusForbidden)
		return
	}
	if err != nil {
		h.logger.Error("failed to store refresh token", "channel", p.channel.Name, "err", err)
		http.Error(w, "Could not store token", http.StatusInternalServerError)
		return
	}

	h.logger.Info("channel connected", "channel", p.channel.Name, "owner", p.channel.OwnerEmail)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	successPage.Execute(w, p.channel.OwnerEmail)
}

// prune drops expired flows. Callers hold h.mu.
func (h *ConnectHandler) prune() {
	now := h.now()
	for state, p := range h.pending {
		if now.After(p.expires) {
			delete(h.pending, state)
		}
	}
}
