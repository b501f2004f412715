// CartGuard MCP Server - Exposes risk assessment capabilities as MCP tools for LLMs
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cartguard/cartguard/internal/mcpserver"
)

func main() {
	cfg := mcpserver.Config{
		APIURL:    envOrDefault("CARTGUARD_API_URL", "http://localhost:8080"),
		AdminID:   os.Getenv("CARTGUARD_ADMIN_ID"),
		AccessKey: os.Getenv("CARTGUARD_ACCESS_KEY"),
	}

	if cfg.AdminID == "" {
		fmt.Fprintln(os.Stderr, "CARTGUARD_ADMIN_ID is required")
		os.Exit(1)
	}
	if cfg.AccessKey == "" {
		fmt.Fprintln(os.Stderr, "CARTGUARD_ACCESS_KEY is required")
		os.Exit(1)
	}

	s := mcpserver.NewMCPServer(cfg)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
