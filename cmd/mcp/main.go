package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/laurentvv/haproxy-docs-rag/internal/bootstrap"
	"github.com/laurentvv/haproxy-docs-rag/internal/config"
	"github.com/laurentvv/haproxy-docs-rag/internal/core/ports"
	"github.com/laurentvv/haproxy-docs-rag/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	// Stdout carries the MCP protocol, logs go to stderr.
	logger := logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	mcpServer := server.NewMCPServer(
		"haproxy-docs-rag",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_haproxy_docs",
		mcp.WithDescription("Search the HAProxy documentation and return the most relevant passages with sources."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural language question or configuration keywords, English or French."),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum number of passages to return (default from server config)."),
		),
	)
	mcpServer.AddTool(searchTool, searchHandler(app.Retriever))

	logger.Info("mcp server starting on stdio")
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func searchHandler(retriever ports.Retriever) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topK := request.GetInt("top_k", 0)

		result, err := retriever.Retrieve(ctx, query, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("retrieve: %v", err)), nil
		}

		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
