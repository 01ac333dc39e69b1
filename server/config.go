package server

// Config is the HTTP server configuration.
type Config struct {
	// Address to listen on (e.g., ":8080")
	ListenAddr string

	// Version is reported by /health and the MCP endpoint.
	Version string
}
