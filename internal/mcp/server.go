package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered. remote
// may be nil, in which case the server-copy tool is not offered.
func New(ds DataSource, remote Remote, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("repflow", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("repflow workout session engine. Read the live session cursor, rest timer and workout trees with their logged sets. Read-only."),
	)

	h := &handlers{ds: ds, remote: remote, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetSessionState, Handler: h.getSessionState},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
	)
	if remote != nil {
		s.AddTool(toolGetSyncedWorkout, h.getSyncedWorkout)
	}

	s.AddResources(
		server.ServerResource{Resource: resSession, Handler: h.sessionResource},
		server.ServerResource{Resource: resActiveWorkout, Handler: h.activeWorkoutResource},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds     DataSource
	remote Remote
	log    *slog.Logger
}

// --- Resource definitions ---

var resSession = mcp.NewResource(
	"repflow://session",
	"Session",
	mcp.WithResourceDescription("The live session: cursor position, current set preview and rest countdown"),
	mcp.WithMIMEType("application/json"),
)

var resActiveWorkout = mcp.NewResource(
	"repflow://active_workout",
	"Active Workout",
	mcp.WithResourceDescription("The workout tree of the active session with all logged sets"),
	mcp.WithMIMEType("application/json"),
)
