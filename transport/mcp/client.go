package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/completion"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/preset"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/region"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/service"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/store"
)

// maxRegionCells bounds rectangles passed to create_region
const maxRegionCells = 250000

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Map Editor",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Map Editor - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A map is a source image divided into square cells (baseCellSize pixels) that
are grouped into zones (zoneSize x zoneSize cells). Pixel space maps linearly
onto world units. Every map has a hidden base region covering all cells;
regions you create are named groups of cells that may carry an environment
or metadata override and may link to a nested child map.

AVAILABLE TOOLS:
- list_presets / list_maps / get_map / create_map / delete_map
- list_regions / create_region / update_region / delete_region
- add_placement: drop a marker at a pixel position
- completion / zone_coverage: how much of the map has authored content
- convert_coordinates: pixel -> cell, world and zone
- describe_cell: regions, placements and override of one cell
- open_session / session_state / dispatch_actions / region_from_selection / close_session
- editor_instructions: cell, zone and selection rules in detail

Cell coordinates are integers starting at (0,0) in the top-left corner.`),
	)

	c.registerTools()
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": description}
}

func integerProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	noArgs := mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}}
	mapOnly := mcp.ToolInputSchema{
		Type:       "object",
		Properties: map[string]interface{}{"map_id": stringProp("Map ID")},
		Required:   []string{"map_id"},
	}

	// Maps
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_presets",
		Description: "List coordinate presets usable when creating a map",
		InputSchema: noArgs,
	}, c.handleListPresets)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_maps",
		Description: "List all maps with their size and region counts",
		InputSchema: noArgs,
	}, c.handleListMaps)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_map",
		Description: "Get the coordinate config and statistics of a map",
		InputSchema: mapOnly,
	}, c.handleGetMap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_map",
		Description: "Create a map from a preset (default preset when omitted)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name":          stringProp("Map name"),
				"preset":        stringProp("Preset ID (optional)"),
				"parent_map_id": stringProp("Parent map for a nested map (optional)"),
			},
			Required: []string{"name"},
		},
	}, c.handleCreateMap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_map",
		Description: "Delete a map with all its regions, placements and sessions",
		InputSchema: mapOnly,
	}, c.handleDeleteMap)

	// Regions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_regions",
		Description: "List the regions of a map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id":       stringProp("Map ID"),
				"include_base": boolProp("Include the base region"),
			},
			Required: []string{"map_id"},
		},
	}, c.handleListRegions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_region",
		Description: "Create a region from a rectangle of cells (inclusive corners) and/or an explicit cell list",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id":         stringProp("Map ID"),
				"name":           stringProp("Region name"),
				"x0":             integerProp("First corner cell X"),
				"y0":             integerProp("First corner cell Y"),
				"x1":             integerProp("Opposite corner cell X"),
				"y1":             integerProp("Opposite corner cell Y"),
				"environment_id": stringProp("Environment ID override (optional)"),
				"biome":          stringProp("Biome metadata (optional)"),
				"climate":        stringProp("Climate metadata (optional)"),
				"danger_level":   numberProp("Danger level metadata (optional)"),
				"cells": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"cellX": map[string]interface{}{"type": "integer"},
							"cellY": map[string]interface{}{"type": "integer"},
						},
					},
					"description": "Explicit cells (optional)",
				},
			},
			Required: []string{"map_id", "name"},
		},
	}, c.handleCreateRegion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "update_region",
		Description: "Rename a region or change its override",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"region_id":      stringProp("Region ID"),
				"name":           stringProp("New name (optional)"),
				"environment_id": stringProp("Environment ID override (optional)"),
				"clear_override": boolProp("Remove the override"),
			},
			Required: []string{"region_id"},
		},
	}, c.handleUpdateRegion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "delete_region",
		Description: "Delete a region. The base region cannot be deleted.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"region_id": stringProp("Region ID")},
			Required:   []string{"region_id"},
		},
	}, c.handleDeleteRegion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "add_placement",
		Description: "Add a placement marker at a pixel position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": stringProp("Map ID"),
				"name":   stringProp("Placement name"),
				"kind":   stringProp("Placement kind, e.g. npc, item, spawn"),
				"x":      numberProp("Pixel X"),
				"y":      numberProp("Pixel Y"),
			},
			Required: []string{"map_id", "kind", "x", "y"},
		},
	}, c.handleAddPlacement)

	// Analysis
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "completion",
		Description: "Share of cells covered by regions or placements (base region excluded)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id":          stringProp("Map ID"),
				"benchmark_cells": integerProp("Advisory benchmark cell count (optional)"),
			},
			Required: []string{"map_id"},
		},
	}, c.handleCompletion)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "zone_coverage",
		Description: "Coverage per zone with mean, spread and extremes",
		InputSchema: mapOnly,
	}, c.handleZoneCoverage)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "convert_coordinates",
		Description: "Convert a pixel position to cell, world and zone coordinates",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": stringProp("Map ID"),
				"x":      numberProp("Pixel X"),
				"y":      numberProp("Pixel Y"),
			},
			Required: []string{"map_id", "x", "y"},
		},
	}, c.handleConvert)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get the regions, placements and effective override of a cell",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": stringProp("Map ID"),
				"x":      integerProp("Cell X"),
				"y":      integerProp("Cell Y"),
			},
			Required: []string{"map_id", "x", "y"},
		},
	}, c.handleDescribeCell)

	// Editing sessions
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "open_session",
		Description: "Open an editing session on a map",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"map_id": stringProp("Map ID"),
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{string(controller.ModeCell), string(controller.ModePlacement)},
					"description": "Interaction mode (default cell)",
				},
			},
			Required: []string{"map_id"},
		},
	}, c.handleOpenSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "session_state",
		Description: "Get the viewport, mode and selection of a session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": stringProp("Session ID")},
			Required:   []string{"session_id"},
		},
	}, c.handleSessionState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dispatch_actions",
		Description: "Send input actions (pointer_down, pointer_move, pointer_up, wheel, key_down, select_all, ...) to a session in order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": stringProp("Session ID"),
				"actions": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "object"},
					"description": "Actions, see GET /api/schema/action",
				},
			},
			Required: []string{"session_id", "actions"},
		},
	}, c.handleDispatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "region_from_selection",
		Description: "Create a region from the committed selection of a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id":     stringProp("Session ID"),
				"name":           stringProp("Region name"),
				"environment_id": stringProp("Environment ID override (optional)"),
			},
			Required: []string{"session_id", "name"},
		},
	}, c.handleRegionFromSelection)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "close_session",
		Description: "Close an editing session",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{"session_id": stringProp("Session ID")},
			Required:   []string{"session_id"},
		},
	}, c.handleCloseSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "editor_instructions",
		Description: "Explain coordinate spaces, regions and selection gestures",
		InputSchema: noArgs,
	}, c.handleEditorInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}

// Tool handlers

func (c *Client) handleListPresets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var presets []preset.Info
	if err := c.apiCall(ctx, "GET", "/api/presets", nil, &presets); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Presets (%d):\n\n", len(presets))
	for _, p := range presets {
		fmt.Fprintf(&result, "- %s: %s (%dx%d px, %dx%d cells)\n",
			p.PresetID, p.Name, p.ImageWidth, p.ImageHeight, p.CellsX, p.CellsY)
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleListMaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var maps []service.MapInfo
	if err := c.apiCall(ctx, "GET", "/api/maps", nil, &maps); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Maps (%d):\n\n", len(maps))
	for _, m := range maps {
		fmt.Fprintf(&result, "- %s %q %dx%d cells, %d regions, %d placements",
			m.ID, m.Name, m.CellsX, m.CellsY, m.RegionCount, m.PlacementCount)
		if m.ParentMapID != "" {
			fmt.Fprintf(&result, " (nested in %s)", m.ParentMapID)
		}
		result.WriteString("\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleGetMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")

	var m service.MapInfo
	if err := c.apiCall(ctx, "GET", "/api/maps/"+escape(mapID), nil, &m); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMapInfo(&m)), nil
}

func (c *Client) handleCreateMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := service.CreateMapRequest{
		Name:        request.GetString("name", ""),
		Preset:      request.GetString("preset", ""),
		ParentMapID: request.GetString("parent_map_id", ""),
	}

	var m service.MapInfo
	if err := c.apiCall(ctx, "POST", "/api/maps", body, &m); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Created map\n" + formatMapInfo(&m)), nil
}

func (c *Client) handleDeleteMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	if err := c.apiCall(ctx, "DELETE", "/api/maps/"+escape(mapID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted map %s", mapID)), nil
}

func (c *Client) handleListRegions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	path := "/api/maps/" + escape(mapID) + "/regions"
	if request.GetBool("include_base", false) {
		path += "?include_base=true"
	}

	var regions []region.Region
	if err := c.apiCall(ctx, "GET", path, nil, &regions); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "Regions of %s (%d):\n\n", mapID, len(regions))
	for _, r := range regions {
		result.WriteString("- " + formatRegion(r) + "\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

// regionCells collects the explicit cells and the optional rectangle of a
// create_region call
func regionCells(request mcp.CallToolRequest) ([]coords.Cell, error) {
	args := request.GetArguments()
	var cells []coords.Cell

	if raw, ok := args["cells"]; ok {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &cells); err != nil {
			return nil, fmt.Errorf("cells must be a list of {cellX, cellY}: %w", err)
		}
	}

	_, hasX0 := args["x0"]
	_, hasY0 := args["y0"]
	if hasX0 || hasY0 {
		x0, y0 := request.GetInt("x0", 0), request.GetInt("y0", 0)
		x1, y1 := request.GetInt("x1", x0), request.GetInt("y1", y0)
		minX, maxX := min(x0, x1), max(x0, x1)
		minY, maxY := min(y0, y1), max(y0, y1)
		if (maxX-minX+1)*(maxY-minY+1) > maxRegionCells {
			return nil, fmt.Errorf("rectangle exceeds %d cells", maxRegionCells)
		}
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				cells = append(cells, coords.Cell{X: x, Y: y})
			}
		}
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("provide a rectangle (x0,y0,x1,y1) or a cells list")
	}
	return cells, nil
}

func (c *Client) handleCreateRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	cells, err := regionCells(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := service.CreateRegionRequest{
		Name:          request.GetString("name", ""),
		Cells:         cells,
		EnvironmentID: request.GetString("environment_id", ""),
	}
	metadata := map[string]any{}
	if v := request.GetString("biome", ""); v != "" {
		metadata["biome"] = v
	}
	if v := request.GetString("climate", ""); v != "" {
		metadata["climate"] = v
	}
	if v, ok := request.GetArguments()["danger_level"]; ok {
		metadata["dangerLevel"] = v
	}
	if len(metadata) > 0 {
		body.Metadata = metadata
	}

	var created region.Region
	if err := c.apiCall(ctx, "POST", "/api/maps/"+escape(mapID)+"/regions", body, &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Created region " + formatRegion(created)), nil
}

func (c *Client) handleUpdateRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	regionID := request.GetString("region_id", "")
	args := request.GetArguments()

	var body service.UpdateRegionRequest
	if _, ok := args["name"]; ok {
		name := request.GetString("name", "")
		body.Name = &name
	}
	if _, ok := args["environment_id"]; ok {
		envID := request.GetString("environment_id", "")
		body.EnvironmentID = &envID
	}
	body.ClearOverride = request.GetBool("clear_override", false)

	var updated region.Region
	if err := c.apiCall(ctx, "PATCH", "/api/regions/"+escape(regionID), body, &updated); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Updated region " + formatRegion(updated)), nil
}

func (c *Client) handleDeleteRegion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	regionID := request.GetString("region_id", "")
	if err := c.apiCall(ctx, "DELETE", "/api/regions/"+escape(regionID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted region %s", regionID)), nil
}

func (c *Client) handleAddPlacement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	body := service.CreatePlacementRequest{
		Name: request.GetString("name", ""),
		Kind: request.GetString("kind", ""),
		X:    request.GetFloat("x", 0),
		Y:    request.GetFloat("y", 0),
	}

	var p store.Placement
	if err := c.apiCall(ctx, "POST", "/api/maps/"+escape(mapID)+"/placements", body, &p); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created placement %s (%s %q) at (%.1f, %.1f)", p.ID, p.Kind, p.Name, p.X, p.Y)), nil
}

func (c *Client) handleCompletion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	path := "/api/maps/" + escape(mapID) + "/completion"
	if b := request.GetInt("benchmark_cells", 0); b > 0 {
		path += fmt.Sprintf("?benchmark=%d", b)
	}

	var res completion.Result
	if err := c.apiCall(ctx, "GET", path, nil, &res); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCompletion(&res)), nil
}

func (c *Client) handleZoneCoverage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")

	var report completion.ZoneReport
	if err := c.apiCall(ctx, "GET", "/api/maps/"+escape(mapID)+"/zones", nil, &report); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatZoneReport(&report)), nil
}

func (c *Client) handleConvert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	x, y := request.GetFloat("x", 0), request.GetFloat("y", 0)

	var conv service.Conversion
	path := fmt.Sprintf("/api/maps/%s/convert?x=%g&y=%g", escape(mapID), x, y)
	if err := c.apiCall(ctx, "GET", path, nil, &conv); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Pixel (%.2f, %.2f)\nCell: (%d, %d), center (%.2f, %.2f)\nWorld: (%.2f, %.2f)\nZone: (%d, %d)\n",
		conv.Pixel.X, conv.Pixel.Y,
		conv.Cell.X, conv.Cell.Y, conv.CellCenter.X, conv.CellCenter.Y,
		conv.World.X, conv.World.Y,
		conv.Zone.X, conv.Zone.Y)
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapID := request.GetString("map_id", "")
	x, y := request.GetInt("x", 0), request.GetInt("y", 0)

	var info service.CellInfo
	path := fmt.Sprintf("/api/maps/%s/cells/%d/%d", escape(mapID), x, y)
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCellInfo(&info)), nil
}

func (c *Client) handleOpenSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := service.OpenSessionRequest{
		MapID: request.GetString("map_id", ""),
		Mode:  controller.Mode(request.GetString("mode", "")),
	}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Opened session\n" + formatSession(&info)), nil
}

func (c *Client) handleSessionState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	var info service.SessionInfo
	if err := c.apiCall(ctx, "GET", "/api/sessions/"+escape(sessionID), nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSession(&info)), nil
}

func (c *Client) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")

	data, err := json.Marshal(request.GetArguments()["actions"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var actions []controller.Action
	if err := json.Unmarshal(data, &actions); err != nil || len(actions) == 0 {
		return mcp.NewToolResultError("actions must be a non-empty list of action objects"), nil
	}

	var state controller.State
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+escape(sessionID)+"/events", actions, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied %d actions\n%s", len(actions), formatState(&state))), nil
}

func (c *Client) handleRegionFromSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	body := service.SelectionRegionRequest{
		Name:          request.GetString("name", ""),
		EnvironmentID: request.GetString("environment_id", ""),
	}

	var created region.Region
	if err := c.apiCall(ctx, "POST", "/api/sessions/"+escape(sessionID)+"/regions", body, &created); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Created region " + formatRegion(created)), nil
}

func (c *Client) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := request.GetString("session_id", "")
	if err := c.apiCall(ctx, "DELETE", "/api/sessions/"+escape(sessionID), nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed session %s", sessionID)), nil
}

func (c *Client) handleEditorInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Map Editor - Instructions

COORDINATE SPACES:
- Pixel: position in the source image, (0,0) top-left.
- Cell: floor(pixel / baseCellSize). Valid cells are 0..cellsX-1 by 0..cellsY-1.
- Zone: floor(cell / zoneSize).
- World: pixel scaled by unrealWidth/imageWidth and unrealHeight/imageHeight.

REGIONS:
- Every map has a base region covering all cells. It is hidden from region
  lists and never counts toward completion.
- A region must have a name, at least one cell, and only cells inside the map.
- The first region in creation order whose cells contain a cell and that has
  an override decides that cell's environment or metadata.

COMPLETION:
- A cell has content when a non-base region covers it or a placement sits on it.
- completion_percentage = cells_with_content / total_cells * 100.

SELECTION (cell mode, dispatch_actions):
- pointer_down + pointer_up on one cell replaces the selection with that cell.
- Hold shift or ctrl in modifiers to add to the selection instead.
- Dragging selects the rectangle between the start and end cells.
- Middle button or space+drag pans; wheel zooms around the pointer.
- Escape clears the selection; Ctrl+A selects every cell.

EXAMPLE (select cells (2,2)..(4,3) on a 10px grid at zoom 1):
[{"type":"pointer_down","button":0,"position":{"x":25,"y":25}},
 {"type":"pointer_move","position":{"x":45,"y":35}},
 {"type":"pointer_up","button":0,"position":{"x":45,"y":35}}]
Then call region_from_selection.`

	return mcp.NewToolResultText(instructions), nil
}

// Formatting helpers

func formatMapInfo(m *service.MapInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Map: %s %q\n", m.ID, m.Name)
	fmt.Fprintf(&result, "Image: %dx%d px | Cell size: %d px | Zone size: %d cells\n",
		m.Config.ImageWidth, m.Config.ImageHeight, m.Config.BaseCellSize, m.Config.ZoneSize)
	fmt.Fprintf(&result, "World: %.0f x %.0f units\n", m.Config.UnrealWidth, m.Config.UnrealHeight)
	fmt.Fprintf(&result, "Cells: %dx%d (%d) | Zones: %dx%d\n", m.CellsX, m.CellsY, m.TotalCells, m.ZonesX, m.ZonesY)
	fmt.Fprintf(&result, "Regions: %d | Placements: %d\n", m.RegionCount, m.PlacementCount)
	if m.ParentMapID != "" {
		fmt.Fprintf(&result, "Nested in map %s (region %s)\n", m.ParentMapID, m.ParentRegionID)
	}
	return result.String()
}

func formatRegion(r region.Region) string {
	s := fmt.Sprintf("%s %q (%d cells)", r.ID, r.Name, len(r.Cells))
	if envID, meta := r.Override.Persisted(); envID != "" {
		s += " env=" + envID
	} else if meta.Biome != "" || meta.Climate != "" || meta.DangerLevel != nil {
		s += fmt.Sprintf(" biome=%s climate=%s", meta.Biome, meta.Climate)
		if meta.DangerLevel != nil {
			s += fmt.Sprintf(" danger=%d", *meta.DangerLevel)
		}
	}
	if r.NestedMapID != "" {
		s += " nested=" + r.NestedMapID
	}
	return s
}

func formatCompletion(r *completion.Result) string {
	result := fmt.Sprintf("Completion: %.2f%% (%d of %d cells)\nRegion cells: %d | Placement cells: %d | Regions: %d\n",
		r.Percentage, r.CellsWithContent, r.TotalCells, r.RegionCells, r.PlacementCells, r.RealRegions)
	if r.BenchmarkCells > 0 {
		result += fmt.Sprintf("Benchmark: %.1f%% of %d cells\n", r.BenchmarkRatio*100, r.BenchmarkCells)
	}
	return result
}

func formatZoneReport(r *completion.ZoneReport) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Zones: %dx%d | mean %.1f%% | stddev %.1f | min %.1f%% | max %.1f%%\n\n",
		r.ZonesX, r.ZonesY, r.Mean, r.StdDev, r.Min, r.Max)

	// One row per zone row, percentages rounded
	for y := 0; y < r.ZonesY; y++ {
		row := make([]string, 0, r.ZonesX)
		for x := 0; x < r.ZonesX; x++ {
			i := y*r.ZonesX + x
			if i < len(r.Zones) {
				row = append(row, fmt.Sprintf("%3.0f", r.Zones[i].Percentage))
			}
		}
		result.WriteString(strings.Join(row, " ") + "\n")
	}
	return result.String()
}

func formatCellInfo(info *service.CellInfo) string {
	var result strings.Builder
	fmt.Fprintf(&result, "Cell (%d, %d) | zone (%d, %d) | world (%.1f, %.1f)\n",
		info.Cell.X, info.Cell.Y, info.Zone.X, info.Zone.Y, info.World.X, info.World.Y)
	fmt.Fprintf(&result, "Pixels: x %.0f..%.0f, y %.0f..%.0f\n",
		info.Rect.X, info.Rect.X+info.Rect.Width, info.Rect.Y, info.Rect.Y+info.Rect.Height)

	if len(info.Regions) == 0 {
		result.WriteString("Regions: none\n")
	} else {
		result.WriteString("Regions:\n")
		for _, r := range info.Regions {
			edge := "interior"
			if r.Boundary {
				edge = "boundary"
			}
			fmt.Fprintf(&result, "  - %s %q (%s)\n", r.ID, r.Name, edge)
		}
	}
	fmt.Fprintf(&result, "Placements: %d | Has content: %v\n", info.Placements, info.HasContent)

	switch {
	case info.EnvironmentID != "":
		fmt.Fprintf(&result, "Environment: %s (from %s)\n", info.EnvironmentID, info.OverrideRegionID)
	case info.Metadata != nil:
		fmt.Fprintf(&result, "Metadata: biome=%s climate=%s (from %s)\n", info.Metadata.Biome, info.Metadata.Climate, info.OverrideRegionID)
	}
	return result.String()
}

func formatSession(info *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nMap: %s\nCreated: %s\n%s",
		info.ID, info.MapID, info.CreatedAt.Format("2006-01-02 15:04:05"), formatState(&info.State))
}

func formatState(s *controller.State) string {
	result := fmt.Sprintf("Mode: %s | Zoom: %.2f | Pan: (%.1f, %.1f) | Grid: %v | Snap: %v\n",
		s.Mode, s.Viewport.Zoom, s.Viewport.Pan.X, s.Viewport.Pan.Y, s.ShowGrid, s.Snap)
	result += fmt.Sprintf("Selection: %d cells", s.Selection.Count)
	if s.SelectedRegionID != "" {
		result += " | Selected region: " + s.SelectedRegionID
	}
	return result + "\n"
}
