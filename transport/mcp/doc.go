// Package mcp exposes the map editor to AI agents over the Model Context
// Protocol.
//
// The mcp package implements:
//   - Tool definitions for maps, regions, placements and analysis
//   - Editing session tools that replay input actions
//   - Plain-text formatting of every result for agent consumption
//
// MCP Tools:
//   - list_presets, list_maps, get_map, create_map, delete_map
//   - list_regions, create_region, update_region, delete_region, add_placement
//   - completion, zone_coverage, convert_coordinates, describe_cell
//   - open_session, session_state, dispatch_actions, region_from_selection, close_session
//   - editor_instructions
//
// Architecture:
//
// Client holds no editor state. Every tool call is proxied to the REST API
// at baseURL, so the same server process can back the /mcp HTTP endpoint
// and a stdio MCP server. API errors are returned as tool errors rather
// than protocol errors.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
