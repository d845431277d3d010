package main

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fskit/internal/mcp"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the MCP tools this server exposes",
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	tools := mcp.NewServerForCLI().GetToolDefinitions()
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })

	name := color.New(color.FgCyan, color.Bold)
	required := color.New(color.FgYellow)

	for _, tool := range tools {
		name.Println(tool.Name)
		fmt.Printf("  %s\n", tool.Description)

		if req, ok := tool.InputSchema["required"].([]string); ok && len(req) > 0 {
			required.Printf("  required: %v\n", req)
		}
		fmt.Println()
	}
	fmt.Printf("%d tools\n", len(tools))
	return nil
}
