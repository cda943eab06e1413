package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const athleteIDKey contextKey = iota

// AthleteIDFromContext extracts the athlete injected by the transport layer,
// or "" when none was set.
func AthleteIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(athleteIDKey).(string); ok {
		return id
	}
	return ""
}

// WithAthleteID returns a context scoped to the given athlete.
func WithAthleteID(ctx context.Context, athleteID string) context.Context {
	return context.WithValue(ctx, athleteIDKey, athleteID)
}

// New creates an MCP server with all tools and resources registered.
// defaultAthlete is used when neither the call nor the context names one.
func New(ds DataSource, version, defaultAthlete string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("UltraCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("UltraCoach workout server. Validate and compile structured workouts (warm-up, intervals, cool-down) into watch steps with heart-rate targets, read athlete HR constraints, and plan workouts by date."),
	)

	h := &handlers{ds: ds, log: log, defaultAthlete: defaultAthlete}

	s.AddTools(
		server.ServerTool{Tool: toolValidateWorkout, Handler: h.validateWorkout},
		server.ServerTool{Tool: toolCompileWorkout, Handler: h.compileWorkout},
		server.ServerTool{Tool: toolGetAthleteConstraints, Handler: h.getAthleteConstraints},
		server.ServerTool{Tool: toolListPlannedWorkouts, Handler: h.listPlannedWorkouts},
		server.ServerTool{Tool: toolSavePlannedWorkout, Handler: h.savePlannedWorkout},
	)

	s.AddResources(
		server.ServerResource{Resource: resHRTargetRules, Handler: h.hrTargetRules},
		server.ServerResource{Resource: resUpcomingPlans, Handler: h.upcomingPlans},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds             DataSource
	log            *slog.Logger
	defaultAthlete string
}

// athleteID resolves the athlete for a call: explicit argument, then
// context, then the server default.
func (h *handlers) athleteID(ctx context.Context, req mcp.CallToolRequest) string {
	if id := req.GetString("athlete_id", ""); id != "" {
		return id
	}
	if id := AthleteIDFromContext(ctx); id != "" {
		return id
	}
	return h.defaultAthlete
}

// --- Resource definitions ---

var resHRTargetRules = mcp.NewResource(
	"ultracoach://hr_target_rules",
	"Heart-Rate Target Rules",
	mcp.WithResourceDescription("How workout segments become watch steps: field aliases, HR fallbacks, device encoding and intensity keywords"),
	mcp.WithMIMEType("application/json"),
)

var resUpcomingPlans = mcp.NewResource(
	"ultracoach://upcoming_plans",
	"Upcoming Planned Workouts",
	mcp.WithResourceDescription("Workouts planned for the default athlete over the next 7 days"),
	mcp.WithMIMEType("application/json"),
)
