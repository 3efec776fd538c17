// Package auth guards the bridge the renderer talks to.
//
// The bridge listens on loopback, but any local process could reach it, so
// the main process hands the renderer a token at launch. When a token is
// configured every request except the public paths must present it.
//
// # Configuration
//
//	BRIDGE_TOKEN=<random string>  # Empty disables the check
//
// # Usage
//
//	router.Use(auth.SecurityHeadersMiddleware())
//	router.Use(auth.NewMiddleware(cfg.Bridge.Token).Handler())
//
// Clients send the token as a Bearer header. Websocket clients, which
// cannot set headers from a browser, may pass it as the token query
// parameter instead.
package auth
