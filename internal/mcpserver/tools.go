package mcpserver

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions for the CartGuard MCP server.
// Descriptions are what the LLM reads to decide which tool to use.

var ToolScanSession = mcp.NewTool("scan_session",
	mcp.WithDescription(
		"Assess the abandonment risk of a live checkout session. "+
			"Returns a risk percentage (0-100), bot verdict, the recommended recovery "+
			"action (free shipping, discount, CAPTCHA), and an offer code when one is issued."),
	mcp.WithNumber("item_count",
		mcp.Required(),
		mcp.Description("Number of items in the cart (1-100)")),
	mcp.WithNumber("cart_value",
		mcp.Required(),
		mcp.Description("Total cart value in dollars (e.g. 249.99)")),
	mcp.WithNumber("dwell_minutes",
		mcp.Required(),
		mcp.Description("Minutes the shopper has dwelled on the current step (e.g. 3.5)")),
	mcp.WithString("platform",
		mcp.Required(),
		mcp.Description("Shopper's platform"),
		mcp.Enum("desktop", "mobile")),
	mcp.WithString("funnel_stage",
		mcp.Required(),
		mcp.Description("Checkout step the session is on"),
		mcp.Enum("cart", "shipping", "payment", "review")),
)

var ToolForecastAbandonment = mcp.NewTool("forecast_abandonment",
	mcp.WithDescription(
		"Project daily abandonment counts for the coming days using the trained "+
			"time-series model. Returns one value per day. "+
			"Unavailable when no forecaster model is loaded."),
	mcp.WithNumber("days",
		mcp.Description("Forecast horizon in days (1-90, default from server config)")),
)

var ToolRecentScans = mcp.NewTool("recent_scans",
	mcp.WithDescription(
		"List the most recent risk assessments, newest first. "+
			"Each entry shows risk percentage, bot verdict, scoring source "+
			"(override rule, model, or fallback), and the recovery action taken."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of scans to return (1-500, default 50)")),
)

var ToolFunnelSummary = mcp.NewTool("funnel_summary",
	mcp.WithDescription(
		"Summarize scanned sessions by checkout stage (cart, shipping, payment, review): "+
			"session counts, average risk, and bot counts per stage. "+
			"Use this to see where shoppers hesitate most."),
)
