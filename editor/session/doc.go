// Package session tracks open editing sessions.
//
// An editing session is the server-side pairing of one map with one
// controller.Controller. Browser tabs, agents and websocket clients address a
// session by a short case-insensitive id (four hex characters when generated).
//
// Sessions are ephemeral: they hold view and selection state only. Everything
// durable (maps, regions, placements) is written through the store package, so
// a restart loses open sessions but no authored content.
//
// Usage:
//
//	mgr := session.NewManager()
//	s, err := mgr.Create("", ctrl)
//	if err != nil {
//		return err
//	}
//	s.OnClose(unsubscribe)
//
//	// periodically
//	mgr.CleanupExpiredSessions(24 * time.Hour)
package session
