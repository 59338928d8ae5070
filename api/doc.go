// Package api provides HTTP REST API handlers for the map editor.
//
// The api package implements:
//   - Map, region and placement CRUD
//   - Coverage, zone, conversion, cell and overlay queries
//   - Editing sessions driven by input events
//   - JSON schemas of every request body
//   - WebSocket upgrade handling
//
// Endpoints:
//
// Presets:
//   - GET /api/presets - List coordinate presets
//   - GET /api/presets/{name} - Get one preset
//
// Maps:
//   - GET /api/maps[?parent=<id>] - List maps, optionally nested maps of a parent
//   - POST /api/maps - Create a map from a preset or explicit config
//   - GET|PATCH|DELETE /api/maps/{id} - Get, rename or delete (cascading) a map
//   - GET /api/maps/{id}/completion[?benchmark=<cells>] - Content coverage
//   - GET /api/maps/{id}/zones - Coverage per zone
//   - GET /api/maps/{id}/convert?x=&y= - Pixel to cell, world and zone
//   - GET /api/maps/{id}/cells/{x}/{y} - What covers a cell
//   - GET /api/maps/{id}/overlay - Region fill and outline geometry
//   - GET /api/maps/{id}/preview.png[?width=] - Rendered overlay
//
// Regions and placements:
//   - GET|POST /api/maps/{id}/regions[?include_base=true]
//   - GET|PATCH|DELETE /api/regions/{id}
//   - POST|DELETE /api/regions/{id}/cells - Add or remove cells
//   - GET|POST /api/maps/{id}/placements
//   - DELETE /api/placements/{id}
//
// Editing sessions:
//   - POST /api/sessions - Open a session on a map
//   - GET /api/sessions[?map=<id>] - List sessions
//   - GET|DELETE /api/sessions/{id}
//   - POST /api/sessions/{id}/events - Dispatch one action or an array of actions
//   - GET /api/sessions/{id}/selection - Committed selection with extents
//   - GET /api/sessions/{id}/grid - Grid lines of the visible area
//   - POST /api/sessions/{id}/regions - Region from the selection
//   - POST /api/sessions/{id}/world-region - Region plus nested map from the selection
//
// Schemas:
//   - GET /api/schema - List schema names
//   - GET /api/schema/{name} - JSON schema of a request body
//
// WebSocket:
//   - /ws?session=<id> - Controller state after every action
//   - /ws?map=<id> - Region and placement change events
//
// Actions are sent as POST with JSON body:
//
//	{"type": "pointer_down", "button": 0, "position": {"x": 120, "y": 80}, "modifiers": {"shift": true}}
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "error message",
//	  "code": 400
//	}
//
// Invalid configuration, validation failures and bad actions map to 400,
// unknown maps, regions, sessions and presets to 404, and backend failures
// to 503. A 503 leaves the editor state unchanged, so the request can be
// retried.
package api
