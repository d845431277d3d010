package main

import (
	"github.com/spf13/cobra"

	"fskit/internal/access"
	"fskit/internal/fsops"
	"fskit/internal/mcp"
	"fskit/internal/search"
	"fskit/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [flags] DIRECTORY...",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server over stdio.

The server exposes sandboxed filesystem tools to MCP clients using
JSON-RPC 2.0. Every tool argument path must resolve inside one of the
allowed directories given as positional arguments (or configured in
.fskit/config.json).

Example usage:
  fskit mcp ~/projects ~/notes

This command is typically invoked by MCP clients and not directly by
users.`,
	Args: cobra.ArbitraryArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	guard, err := access.NewGuard(cfg.AllowedDirectories, access.Options{
		AllowWrite:   cfg.AllowWrite,
		DynamicRoots: cfg.EnableRoots,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	searchSvc, err := search.NewService(guard, search.Options{
		Workers:      cfg.Search.Workers,
		MaxDepth:     cfg.Walker.MaxDepth,
		CacheEntries: cfg.Cache.MaxASTEntries,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	fsopsSvc := fsops.NewService(guard, logger)

	server := mcp.NewServer(guard, searchSvc, fsopsSvc, mcp.Options{
		Version:     version.Version,
		EnableRoots: cfg.EnableRoots,
		Logger:      logger,
	})

	if err := server.Start(); err != nil {
		logger.Error("MCP server error", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}
