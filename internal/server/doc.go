// Package server provides HTTP routing, middleware, the publish API and the OAuth connect callback.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first). [Logging] and
// [Recover] are the stock middleware for the serve command.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns,
// so handlers read path wildcards with [http.Request.PathValue].
//
// # Publish API
//
// [PublishHandler] serves:
//
//	POST /tasks/{id}/publish  validate and queue a publish (202, or 400/404/409/503)
//	GET  /publishes/{id}      stored outcome of a publish
//
// Validation, chapter and account errors come back synchronously; upload failures only
// ever show up in the stored outcome.
//
// # OAuth Callback Handlers
//
// [OAuthHandler] implements the authorization code callback used by "channel connect".
// It validates the state parameter, exchanges the code, and sends the token through a
// channel. It processes one callback only.
//
// [ConnectHandler] is the long-running variant mounted by "serve":
//
//	GET /channels/{id}/connect  redirect to the consent page for the channel owner
//	GET /callback               exchange the code and store the refresh token
package server
