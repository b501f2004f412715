package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers holds the handler functions for each MCP tool.
type Handlers struct {
	client *CartGuardClient
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(client *CartGuardClient) *Handlers {
	return &Handlers{client: client}
}

// HandleScanSession assesses one checkout session.
func (h *Handlers) HandleScanSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	itemCount := req.GetInt("item_count", 0)
	cartValue := req.GetFloat("cart_value", 0)
	dwellMinutes := req.GetFloat("dwell_minutes", 0)
	platform := req.GetString("platform", "")
	funnelStage := req.GetString("funnel_stage", "")

	if itemCount <= 0 || cartValue <= 0 || dwellMinutes <= 0 {
		return mcp.NewToolResultError("item_count, cart_value, and dwell_minutes must all be positive"), nil
	}
	if platform == "" || funnelStage == "" {
		return mcp.NewToolResultError("platform and funnel_stage are required"), nil
	}

	raw, err := h.client.ScanSession(ctx, itemCount, cartValue, dwellMinutes, platform, funnelStage)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Scan failed: %v", err)), nil
	}

	text, err := formatScan(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scan result: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleForecastAbandonment projects daily abandonment counts.
func (h *Handlers) HandleForecastAbandonment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := req.GetInt("days", 0)

	raw, err := h.client.Forecast(ctx, days)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Forecast failed: %v", err)), nil
	}

	text, err := formatForecast(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse forecast: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleRecentScans lists the latest risk assessments.
func (h *Handlers) HandleRecentScans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 0)

	raw, err := h.client.RecentScans(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list scans: %v", err)), nil
	}

	text, err := formatScanList(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse scans: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// HandleFunnelSummary summarizes sessions by checkout stage.
func (h *Handlers) HandleFunnelSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := h.client.FunnelSummary(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to summarize funnel: %v", err)), nil
	}

	text, err := formatFunnel(raw)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse funnel summary: %v", err)), nil
	}

	return mcp.NewToolResultText(text), nil
}

// -----------------------------------------------------------------------------
// Formatting
// -----------------------------------------------------------------------------

func formatScan(raw json.RawMessage) (string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Risk Assessment:\n")
	if v, ok := getFloat(m, "riskPct"); ok {
		sb.WriteString(fmt.Sprintf("  Risk: %.0f%%\n", v))
	}
	if isBot, ok := m["isBot"].(bool); ok && isBot {
		sb.WriteString("  Bot traffic: YES\n")
	}
	if v := getString(m, "hesitation"); v != "" {
		sb.WriteString(fmt.Sprintf("  Hesitation: %s\n", v))
	}
	if v := getString(m, "source"); v != "" {
		sb.WriteString(fmt.Sprintf("  Scored by: %s\n", v))
	}
	if v := getString(m, "action"); v != "" && v != "none" {
		sb.WriteString(fmt.Sprintf("  Recovery action: %s\n", v))
	}
	if v := getString(m, "offerCode"); v != "" {
		sb.WriteString(fmt.Sprintf("  Offer code: %s\n", v))
	}
	if v := getString(m, "id"); v != "" {
		sb.WriteString(fmt.Sprintf("  Scan ID: %s\n", v))
	}

	return sb.String(), nil
}

func formatForecast(raw json.RawMessage) (string, error) {
	var resp struct {
		HorizonDays int       `json:"horizonDays"`
		Values      []float64 `json:"values"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Abandonment forecast (%d days):\n", resp.HorizonDays))
	var total float64
	for i, v := range resp.Values {
		sb.WriteString(fmt.Sprintf("  Day %2d: %.2f\n", i+1, v))
		total += v
	}
	sb.WriteString(fmt.Sprintf("  Total:  %.2f projected abandonments\n", total))

	return sb.String(), nil
}

func formatScanList(raw json.RawMessage) (string, error) {
	var resp struct {
		Scans []map[string]any `json:"scans"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Scans) == 0 {
		return "No scans recorded yet.", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Last %d scan(s), newest first:\n\n", len(resp.Scans)))
	for i, rec := range resp.Scans {
		assessment, _ := rec["assessment"].(map[string]any)
		decision, _ := rec["decision"].(map[string]any)
		feats, _ := rec["features"].(map[string]any)
		if assessment == nil {
			continue
		}

		risk, _ := getFloat(assessment, "riskPct")
		line := fmt.Sprintf("%d. %.0f%% risk", i+1, risk)
		if isBot, ok := assessment["isBot"].(bool); ok && isBot {
			line += " [BOT]"
		}
		if v := getString(assessment, "source"); v != "" {
			line += fmt.Sprintf(" via %s", v)
		}
		if feats != nil {
			if v := getString(feats, "funnelStage"); v != "" {
				line += fmt.Sprintf(" at %s", v)
			}
		}
		if decision != nil {
			if v := getString(decision, "action"); v != "" && v != "none" {
				line += fmt.Sprintf(" -> %s", v)
			}
		}
		sb.WriteString(line + "\n")
	}

	return sb.String(), nil
}

func formatFunnel(raw json.RawMessage) (string, error) {
	var resp struct {
		Stages []map[string]any `json:"stages"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", err
	}

	if len(resp.Stages) == 0 {
		return "No funnel data yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("Checkout funnel:\n")
	for _, s := range resp.Stages {
		stage := getString(s, "stage")
		scans, _ := getFloat(s, "scans")
		meanRisk, _ := getFloat(s, "meanRiskPct")
		bots, _ := getFloat(s, "bots")
		sb.WriteString(fmt.Sprintf("  %-8s %4.0f scans, avg risk %5.1f%%, %.0f bot(s)\n",
			stage, scans, meanRisk, bots))
	}

	return sb.String(), nil
}

// getString extracts a string value from a map, trying multiple key names.
func getString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			if f, ok := v.(float64); ok {
				return fmt.Sprintf("%g", f)
			}
		}
	}
	return ""
}

// getFloat extracts a float64 value from a map, trying multiple key names.
func getFloat(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
