package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/ptime/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so assistants can
read recorded time. Configure it with:

  {
    "mcpServers": {
      "ptime": { "command": "ptime", "args": ["mcp"] }
    }
  }

Available tools: ptime_today, ptime_status, ptime_projects, ptime_report,
ptime_range_report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return mcp.NewServer(s, time.Local, buildVersion).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
