// Package websocket pushes map editor changes to browser clients.
//
// The websocket package implements:
//   - Controller state streaming per editing session
//   - Region and placement change streaming per map
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// A central Hub owns every connection and runs a single event loop. Clients
// are grouped by topic, either a session or a map. The first client of a
// topic opens a subscription on the Source (usually the EditorService); the
// last one to leave closes it. Each client has a dedicated write goroutine and
// a read goroutine that only keeps the connection alive.
//
// Message Protocol:
//
// Every frame is one JSON Message:
//   - {"session_id": "ab12", "event": "state_update", "state": {...}}
//   - {"map_id": "...", "event": "map_change", "change": {"type": "region_created", ...}}
//
// Usage:
//
//	hub := websocket.NewHub(editorService)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeSession(w, r, r.URL.Query().Get("session"))
//	})
package websocket
