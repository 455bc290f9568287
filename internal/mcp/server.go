// Package mcp exposes recorded time to MCP clients over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/ptime/internal/humanize"
	"github.com/joescharf/ptime/internal/models"
	"github.com/joescharf/ptime/internal/report"
	"github.com/joescharf/ptime/internal/store"
)

// Server wraps the interval store and exposes read-only reporting tools.
type Server struct {
	store   store.Store
	loc     *time.Location
	now     func() time.Time
	version string
}

// NewServer creates the MCP server wrapper. Days are bucketed in loc.
func NewServer(s store.Store, loc *time.Location, version string) *Server {
	if loc == nil {
		loc = time.Local
	}
	return &Server{store: s, loc: loc, now: time.Now, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("ptime", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.todayTool())
	srv.AddTool(s.statusTool())
	srv.AddTool(s.projectsTool())
	srv.AddTool(s.reportTool())
	srv.AddTool(s.rangeReportTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.NewStdioServer(s.MCPServer()).Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func filterProject(ivs []*models.Interval, project string) []*models.Interval {
	if project == "" {
		return ivs
	}
	var out []*models.Interval
	for _, iv := range ivs {
		if iv.Project == project {
			out = append(out, iv)
		}
	}
	return out
}

// ptime_today
func (s *Server) todayTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ptime_today",
		mcp.WithDescription("Time recorded today, in total and per project. Only finished intervals count."),
		mcp.WithString("project", mcp.Description("Restrict to one project")),
	)
	return tool, s.handleToday
}

type todayOut struct {
	Date       string                         `json:"date"`
	MsDuration int64                          `json:"msDuration"`
	Duration   string                         `json:"duration"`
	Projects   map[string]report.ProjectTotal `json:"projects"`
}

func (s *Server) handleToday(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := s.today(ctx, request.GetString("project", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read today's time: %v", err)), nil
	}
	return jsonResult(out)
}

func (s *Server) today(ctx context.Context, project string) (*todayOut, error) {
	now := s.now()
	// FetchAfter is exclusive; step back one ms to keep midnight starts.
	ivs, err := s.store.FetchAfter(ctx, report.StartOfDay(now, s.loc).UnixMilli()-1)
	if err != nil {
		return nil, err
	}
	out := &todayOut{
		Date:     now.In(s.loc).Format(report.DateLayout),
		Projects: map[string]report.ProjectTotal{},
	}
	for name, ms := range report.TodayByProject(filterProject(ivs, project), now, s.loc) {
		out.Projects[name] = report.ProjectTotal{MsDuration: ms, Duration: humanize.Format(ms)}
		out.MsDuration += ms
	}
	out.Duration = humanize.Format(out.MsDuration)
	return out, nil
}

// ptime_status
func (s *Server) statusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ptime_status",
		mcp.WithDescription("What is being tracked right now (project, branch and running time) plus today's total."),
	)
	return tool, s.handleStatus
}

type activeOut struct {
	Project string `json:"project"`
	Branch  string `json:"branch"`
	Since   string `json:"since"`
	Running string `json:"running"`
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	open, err := s.store.OpenIntervals(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read open intervals: %v", err)), nil
	}
	today, err := s.today(ctx, "")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read today's time: %v", err)), nil
	}

	now := s.now()
	active := make([]activeOut, 0, len(open))
	for _, iv := range open {
		active = append(active, activeOut{
			Project: iv.Project,
			Branch:  iv.Branch,
			Since:   time.UnixMilli(iv.Start).In(s.loc).Format(time.RFC3339),
			Running: humanize.Format(now.UnixMilli() - iv.Start),
		})
	}
	return jsonResult(map[string]any{
		"tracking": len(active) > 0,
		"active":   active,
		"today":    today.Duration,
		"todayMs":  today.MsDuration,
	})
}

// ptime_projects
func (s *Server) projectsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ptime_projects",
		mcp.WithDescription("List every project that has recorded time."),
	)
	return tool, s.handleProjects
}

func (s *Server) handleProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.store.Projects(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list projects: %v", err)), nil
	}
	if names == nil {
		names = []string{}
	}
	return jsonResult(names)
}

// ptime_report
func (s *Server) reportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ptime_report",
		mcp.WithDescription("Full time report: project -> day (most recent first) -> per-branch durations."),
		mcp.WithString("project", mcp.Description("Restrict to one project")),
	)
	return tool, s.handleReport
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ivs, err := s.store.FetchAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read intervals: %v", err)), nil
	}
	return jsonResult(report.Daily(filterProject(ivs, request.GetString("project", "")), s.loc))
}

// ptime_range_report
func (s *Server) rangeReportTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ptime_range_report",
		mcp.WithDescription("Total time per project between two calendar days, both inclusive."),
		mcp.WithString("start", mcp.Required(), mcp.Description("First day, YYYY-MM-DD")),
		mcp.WithString("end", mcp.Required(), mcp.Description("Last day, YYYY-MM-DD")),
	)
	return tool, s.handleRangeReport
}

func (s *Server) handleRangeReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := request.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: start"), nil
	}
	end, err := request.RequireString("end")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: end"), nil
	}

	dr, err := report.ParseRange(start, end, s.loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ivs, err := s.store.FetchBetween(ctx, dr.StartMs(), dr.EndMs())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read intervals: %v", err)), nil
	}
	return jsonResult(report.Range(ivs, dr.Start, dr.End))
}
