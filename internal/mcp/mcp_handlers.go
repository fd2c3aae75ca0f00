package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/sensorium/core"
	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	queries *core.QueryService
}

func jsonResult(v any) *mcp.CallToolResult {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err))
	}
	return mcp.NewToolResultText(string(jsonData))
}

func (h *toolHandler) parseTime(request mcp.CallToolRequest, name string) (time.Time, error) {
	t, err := contract.ParseTimeArg(request.GetString(name, ""), time.Now(), h.baseCfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}

// listQuery reads the shared listing arguments, falling back to the base config.
func (h *toolHandler) listQuery(request mcp.CallToolRequest) (schema.ListQuery, error) {
	kind, err := schema.ParseSensorKind(request.GetString("kind", ""))
	if err != nil {
		return schema.ListQuery{}, err
	}
	q := schema.ListQuery{
		Kind:   kind,
		Limit:  request.GetInt("limit", h.baseCfg.Limit),
		Offset: request.GetInt("offset", 0),
		Order:  schema.SortOrder(request.GetString("order", string(h.baseCfg.Order))),
	}
	if q.Start, err = h.parseTime(request, "start"); err != nil {
		return q, err
	}
	if q.End, err = h.parseTime(request, "end"); err != nil {
		return q, err
	}
	return core.NormalizeListQuery(q)
}

func (h *toolHandler) handleListSensorData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := h.listQuery(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid query parameters: %v", err)), nil
	}
	res, err := schema.ParseResolution(request.GetString("resolution", string(schema.MinuteResolution)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var rows any
	switch res {
	case schema.RawResolution:
		rows, err = h.queries.Readings(ctx, q)
	case schema.MinuteResolution:
		rows, err = h.queries.Minutes(ctx, q)
	case schema.HourResolution:
		rows, err = h.queries.Hours(ctx, q)
	default:
		rows, err = h.queries.Days(ctx, q)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(rows), nil
}

func (h *toolHandler) handleGetLatestReading(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := schema.ParseSensorKind(request.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reading, err := h.queries.Latest(ctx, kind)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(reading), nil
}

func (h *toolHandler) handleGetReadingStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := schema.ParseSensorKind(request.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := h.parseTime(request, "start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end, err := h.parseTime(request, "end")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stats, err := h.queries.Stats(ctx, kind, start, end)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(stats), nil
}

// optionalFloat returns nil when the argument was not passed at all.
func optionalFloat(request mcp.CallToolRequest, name string) *float64 {
	if _, ok := request.GetArguments()[name]; !ok {
		return nil
	}
	v := request.GetFloat(name, 0)
	return &v
}

func (h *toolHandler) handleFindMinuteVariations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := h.listQuery(request)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid query parameters: %v", err)), nil
	}
	rows, err := h.queries.Variations(ctx, schema.VariationQuery{
		ListQuery: q,
		MinRange:  optionalFloat(request, "min_range"),
		MinStdDev: optionalFloat(request, "min_std_dev"),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return jsonResult(rows), nil
}

func (h *toolHandler) handleCompareMinute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := schema.ParseSensorKind(request.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	at, err := h.parseTime(request, "at")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if at.IsZero() {
		return mcp.NewToolResultError("at is required"), nil
	}
	cmp, err := h.queries.Compare(ctx, kind, at)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("comparison failed: %v", err)), nil
	}
	return jsonResult(cmp), nil
}

func (h *toolHandler) handleGetStoreStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.queries.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}
	return jsonResult(status), nil
}
