package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/server"
	"github.com/desertthunder/ytpub/internal/shared"
	"github.com/desertthunder/ytpub/internal/ui"
)

const connectTimeout = 2 * time.Minute

// channelView is the JSON shape of a listed channel.
type channelView struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	OwnerEmail string `json:"ownerEmail"`
	Active     bool   `json:"active"`
	Connected  bool   `json:"connected"`
}

// ChannelAdd registers a channel.
func (r *Runner) ChannelAdd(ctx context.Context, cmd *cli.Command, a *app) error {
	ch := models.NewChannel(cmd.String("external-id"), cmd.String("name"), cmd.String("owner"))
	if err := a.channels.Create(ch); err != nil {
		return err
	}

	r.logger.Info("channel added", "id", ch.ID, "external_id", ch.ExternalID, "owner", ch.OwnerEmail)
	r.writePlain("%s Added channel %s (%s)\n", ui.Success("✓"), ch.Name, ch.ID)
	if err := a.resolver.CheckConnected(ctx, *ch); err != nil {
		r.writePlain("Connect the owner's account with: ytpub channel connect %s\n", ch.ID)
	}
	return nil
}

// ChannelList lists channels and whether a refresh token is stored for each owner.
func (r *Runner) ChannelList(ctx context.Context, cmd *cli.Command, a *app) error {
	criteria := map[string]any{}
	if owner := cmd.String("owner"); owner != "" {
		criteria["owner_email"] = owner
	}
	if cmd.Bool("active") {
		criteria["active"] = true
	}

	channels, err := a.channels.List(criteria)
	if err != nil {
		return err
	}

	views := make([]channelView, 0, len(channels))
	for _, ch := range channels {
		connected := true
		if err := a.resolver.CheckConnected(ctx, *ch); err != nil {
			if !errors.Is(err, shared.ErrAccountNotConnected) {
				return err
			}
			connected = false
		}
		views = append(views, channelView{
			ID:         ch.ID,
			ExternalID: ch.ExternalID,
			Name:       ch.Name,
			OwnerEmail: ch.OwnerEmail,
			Active:     ch.Active,
			Connected:  connected,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(views, cmd.Bool("pretty"))
	}

	if len(views) == 0 {
		return r.writePlain("No channels. Add one with: ytpub channel add\n")
	}

	r.writePlain("Found %d channels:\n\n", len(views))
	for i, v := range views {
		r.writePlain("%d. %s\n", i+1, ui.Title(v.Name))
		r.writePlain("   ID: %s\n", v.ID)
		r.writePlain("   YouTube: %s\n", v.ExternalID)
		r.writePlain("   Owner: %s\n", v.OwnerEmail)
		switch {
		case !v.Active:
			r.writePlain("   Status: %s\n", ui.Muted("disabled"))
		case v.Connected:
			r.writePlain("   Status: %s\n", ui.Success("connected"))
		default:
			r.writePlain("   Status: %s\n", ui.Warning("not connected"))
		}
		r.writePlain("\n")
	}
	return nil
}

// ChannelConnect runs the consent flow for the channel owner's account and stores the refresh token.
//
// Starts a local HTTP server, opens the browser for authorization, and exchanges the code for tokens.
func (r *Runner) ChannelConnect(ctx context.Context, cmd *cli.Command, a *app) error {
	ch, err := r.lookupChannel(a, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	config, err := a.resolver.OAuthConfig(ctx)
	if err != nil {
		return err
	}

	token, err := r.doOAuth(ctx, config, ch.OwnerEmail)
	if err != nil {
		return err
	}

	if err := a.resolver.Connect(ctx, *ch, token); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	r.logger.Info("channel connected", "channel", ch.Name, "owner", ch.OwnerEmail)
	r.writePlainln("%s Authorization successful", ui.Success("✓"))
	r.writePlain("%s can now publish to %s\n", ch.OwnerEmail, ch.Name)
	return nil
}

// ChannelDisconnect removes the owner's refresh token. Other channels of the same owner are disconnected too.
func (r *Runner) ChannelDisconnect(ctx context.Context, cmd *cli.Command, a *app) error {
	ch, err := r.lookupChannel(a, cmd.StringArg("id"))
	if err != nil {
		return err
	}

	if err := a.resolver.Disconnect(ctx, *ch); err != nil {
		return err
	}

	r.logger.Info("channel disconnected", "channel", ch.Name, "owner", ch.OwnerEmail)
	r.writePlain("%s Removed the stored token for %s\n", ui.Success("✓"), ch.OwnerEmail)
	return nil
}

// ChannelEnable marks the channel active.
func (r *Runner) ChannelEnable(ctx context.Context, cmd *cli.Command, a *app) error {
	return r.setChannelActive(a, cmd.StringArg("id"), true)
}

// ChannelDisable marks the channel inactive so publishes to it are rejected.
func (r *Runner) ChannelDisable(ctx context.Context, cmd *cli.Command, a *app) error {
	return r.setChannelActive(a, cmd.StringArg("id"), false)
}

func (r *Runner) setChannelActive(a *app, id string, active bool) error {
	ch, err := r.lookupChannel(a, id)
	if err != nil {
		return err
	}
	if err := a.channels.SetActive(ch.ID, active); err != nil {
		return err
	}

	state := "disabled"
	if active {
		state = "enabled"
	}
	r.logger.Info("channel "+state, "channel", ch.Name)
	r.writePlain("%s %s %s\n", ui.Success("✓"), ch.Name, state)
	return nil
}

// lookupChannel accepts either the local id or the YouTube channel id.
func (r *Runner) lookupChannel(a *app, id string) (*models.Channel, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: channel id", shared.ErrMissingArgument)
	}

	ch, err := a.channels.Get(id)
	if errors.Is(err, shared.ErrChannelNotFound) {
		return a.channels.GetByExternalID(id)
	}
	return ch, err
}

// doOAuth serves the callback, opens the consent page and waits for the code exchange.
func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, account string) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(config, state, account)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger))
	router.Handler(oauthHandler)

	srv := server.New(r.config.Server.Host, r.config.Server.Port, router, r.logger)
	serverErrors := srv.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	time.Sleep(100 * time.Millisecond)

	authURL := oauthHandler.AuthURL()
	r.writePlain("→ Opening browser to authorize %s...\n", account)
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s Could not open browser automatically.", ui.Warning("⚠"))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(connectTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err, ok := <-serverErrors:
		if ok {
			return nil, fmt.Errorf("server error: %w", err)
		}
		return nil, fmt.Errorf("%w: callback server stopped", shared.ErrServiceUnavailable)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
