// Package credentials turns a channel into a usable, auto-refreshing access credential
// for the channel owner's account.
//
// # Lookup
//
// [Resolver] reads two secrets through a [secrets.Store]:
//   - the OAuth client blob shared by every channel (Google client_secret.json format)
//   - the refresh token of the channel owner, stored under [shared.RefreshTokenKey]
//
// A missing refresh token is [shared.ErrAccountNotConnected]. [Resolver.CheckConnected]
// performs only that lookup so publishes for unconnected accounts are rejected before any
// network call.
//
// # Refresh
//
// [Credential] implements [oauth2.TokenSource]. Nothing is fetched when it is created;
// every call to Token refreshes synchronously when the cached access token is missing or
// has 300 seconds or less of validity left. Concurrent refreshes for one account are
// coalesced. A failed refresh is [shared.ErrCredentialRefreshFailed] and is not retried.
package credentials
