package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dealhunter/dealhunter/internal/advisor"
	"github.com/dealhunter/dealhunter/internal/search"
	"github.com/dealhunter/dealhunter/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Search  *search.Pipeline
	Advisor *advisor.Advisor
}

// NewMCPServer creates an MCP server with the dealhunter tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"dealhunter",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("dealhunter - travel deal search, scoring, and trip planning."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_deals",
			mcp.WithDescription("Decompose a free-form travel query into concrete search tasks and log the search."),
			mcp.WithString("query", mcp.Description("Free-form travel query, e.g. 'beach week in Portugal in August'"), mcp.Required()),
			mcp.WithString("user_id", mcp.Description("User the search is performed for"), mcp.Required()),
			mcp.WithNumber("budget", mcp.Description("Total trip budget (optional)")),
		),
		mcpSearchDeals(deps),
	)

	s.AddTool(
		mcp.NewTool("score_deal",
			mcp.WithDescription("Rate a stored deal as STEAL, GOOD, AVERAGE, or POOR with a one-sentence summary."),
			mcp.WithString("deal_id", mcp.Description("ID of the deal to score"), mcp.Required()),
		),
		mcpScoreDeal(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_itinerary",
			mcp.WithDescription("Generate a day-by-day itinerary for a destination."),
			mcp.WithString("destination", mcp.Description("Destination city or region"), mcp.Required()),
			mcp.WithNumber("days", mcp.Description("Trip length in days (default 3)")),
			mcp.WithString("vibe", mcp.Description("Trip vibe, e.g. beach, culture, food")),
		),
		mcpGenerateItinerary(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"deals://active",
			"Active Deals",
			mcp.WithResourceDescription("Currently active travel deals as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceActiveDeals(deps),
	)

	return s
}

func mcpSearchDeals(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}
		userID, err := req.RequireString("user_id")
		if err != nil {
			return mcpError("user_id is required"), nil
		}
		budget := req.GetFloat("budget", 0)

		res, err := deps.Search.Perform(ctx, search.Request{
			Query:  query,
			UserID: userID,
			Budget: budget,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpScoreDeal(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dealID, err := req.RequireString("deal_id")
		if err != nil {
			return mcpError("deal_id is required"), nil
		}

		deal, err := deps.Store.GetDeal(dealID)
		if err != nil {
			return mcpError(fmt.Sprintf("deal %s: %v", dealID, err)), nil
		}

		b, err := json.Marshal(deps.Advisor.ScoreDeal(ctx, deal))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal score: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGenerateItinerary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		destination, err := req.RequireString("destination")
		if err != nil {
			return mcpError("destination is required"), nil
		}
		days := req.GetInt("days", 0)
		vibe := req.GetString("vibe", "")

		it := deps.Advisor.GenerateItinerary(ctx, destination, days, vibe)
		b, err := json.Marshal(it)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal itinerary: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceActiveDeals(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		deals, err := deps.Store.ListDeals(true, 50)
		if err != nil {
			return nil, fmt.Errorf("failed to list deals: %w", err)
		}
		if deals == nil {
			deals = []storage.Deal{}
		}

		b, err := json.Marshal(deals)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal deals: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
