package main

// @title           Echo Gateway API
// @version         1.0
// @description     Channel authorization, server-side publishing and connection management for the websocket gateway.
// @BasePath        /
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
