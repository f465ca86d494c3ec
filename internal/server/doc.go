// Package server provides HTTP routing, middleware, and OAuth handling for the CLI and the local web app.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// OAuthHandler implements the OAuth2 authorization code callback flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel.
//
// It only processes one callback to prevent replay attacks.
//
// # Usage
//
// Two paths share this package. The CLI's auth command starts a temporary
// server on the configured address, handles the callback, and shuts down
// after receiving the OAuth token. The web app (internal/web) keeps a
// long-lived server and registers its page handlers on the same router
// alongside the callback route.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
