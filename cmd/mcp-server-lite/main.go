// Command mcp-server-lite serves the FIGO 2023 staging tools over MCP with no
// external databases: assessments are cached in memory and feedback is kept
// in SQLite under FIGO_DATA_DIR.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/figo-endometrial-mcp-server/internal/config"
	"github.com/figo-endometrial-mcp-server/internal/mcp"
)

func main() {
	cfg := config.LoadLiteConfig()

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Printf("MCP server failed: %v", err)
		return
	}
}
