// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var kindEnum = mcp.Enum("temperature", "humidity", "noise", "pressure", "eco2", "tvoc")

// NewMCPServer initializes and configures the Sensorium MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, queries *core.QueryService) *server.MCPServer {
	s := server.NewMCPServer(
		"Sensorium Query Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		queries: queries,
	}

	// --- 1. Tool: list_sensor_data ---
	s.AddTool(mcp.NewTool("list_sensor_data",
		mcp.WithDescription("List raw readings or minute, hour or day aggregates of one sensor kind."),
		mcp.WithString("kind", mcp.Description("Sensor kind."), kindEnum, mcp.Required()),
		mcp.WithString("resolution", mcp.Description("Resolution to list. Defaults to 'minute'."), mcp.Enum("raw", "minute", "hour", "day")),
		mcp.WithString("start", mcp.Description("Inclusive start (RFC3339, 'YYYY-MM-DD[ HH:MM:SS]' or '2 hours ago').")),
		mcp.WithString("end", mcp.Description("Exclusive end, same formats as start.")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (1-1000, default 100).")),
		mcp.WithNumber("offset", mcp.Description("Rows to skip.")),
		mcp.WithString("order", mcp.Description("Sort order by time. Defaults to 'desc'."), mcp.Enum("asc", "desc")),
	), h.handleListSensorData)

	// --- 2. Tool: get_latest_reading ---
	s.AddTool(mcp.NewTool("get_latest_reading",
		mcp.WithDescription("Get the newest raw reading of one sensor kind."),
		mcp.WithString("kind", mcp.Description("Sensor kind."), kindEnum, mcp.Required()),
	), h.handleGetLatestReading)

	// --- 3. Tool: get_reading_stats ---
	s.AddTool(mcp.NewTool("get_reading_stats",
		mcp.WithDescription("Summarize raw readings (count, avg, min, max, std dev) over a time range."),
		mcp.WithString("kind", mcp.Description("Sensor kind."), kindEnum, mcp.Required()),
		mcp.WithString("start", mcp.Description("Inclusive start. Open when omitted.")),
		mcp.WithString("end", mcp.Description("Exclusive end. Open when omitted.")),
	), h.handleGetReadingStats)

	// --- 4. Tool: find_minute_variations ---
	s.AddTool(mcp.NewTool("find_minute_variations",
		mcp.WithDescription("Find minutes whose range or standard deviation exceeds a floor."),
		mcp.WithString("kind", mcp.Description("Sensor kind."), kindEnum, mcp.Required()),
		mcp.WithNumber("min_range", mcp.Description("Range floor. Defaults to the kind's minute alert limit.")),
		mcp.WithNumber("min_std_dev", mcp.Description("Std dev floor. Defaults to the kind's minute alert limit.")),
		mcp.WithString("start", mcp.Description("Inclusive start.")),
		mcp.WithString("end", mcp.Description("Exclusive end.")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return.")),
	), h.handleFindMinuteVariations)

	// --- 5. Tool: compare_minute ---
	s.AddTool(mcp.NewTool("compare_minute",
		mcp.WithDescription("Show a minute aggregate next to the raw readings it was computed from."),
		mcp.WithString("kind", mcp.Description("Sensor kind."), kindEnum, mcp.Required()),
		mcp.WithString("at", mcp.Description("Any instant inside the minute."), mcp.Required()),
	), h.handleCompareMinute)

	// --- 6. Tool: get_store_status ---
	s.AddTool(mcp.NewTool("get_store_status",
		mcp.WithDescription("Report row counts per table and the newest reading per sensor kind."),
	), h.handleGetStoreStatus)

	return s
}

// StartMCPServer starts the Sensorium MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, queries *core.QueryService) error {
	s := NewMCPServer(baseCfg, queries)
	return server.ServeStdio(s)
}
