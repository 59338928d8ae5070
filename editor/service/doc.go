// Package service provides the business logic layer of the map editor.
//
// The service package implements:
//   - Map lifecycle with base regions, nested maps and cascading deletes
//   - Region and placement editing through a validate, persist, commit path
//   - Editing sessions that bind a controller to a map
//   - Coverage, zone statistics, coordinate conversion and overlay geometry
//
// Core Interfaces:
//
// EditorService is the main service interface used by the REST, WebSocket and
// MCP transports. SessionManager stores editing sessions. PresetManager
// supplies coordinate configs for new maps.
//
// Architecture:
//
// The in-memory region.Store is authoritative for reads. Every edit is
// validated against it first, then written to the store.Backend with retry,
// and only committed in memory once the write succeeded. A failed write
// leaves memory untouched and returns a *store.PersistenceError.
//
// After each edit a background refresh of the map is debounced by
// Options.RefreshDelay. It re-reads regions and placements from the backend
// concurrently and replaces the in-memory copy; a failed refresh is logged
// and ignored. Last writer wins.
//
// Usage:
//
//	backend, _ := store.NewFileStore("data")
//	presets, _ := preset.NewManager("presets")
//	svc := service.NewEditorService(backend, session.NewManager(), presets, service.Options{})
//	if err := svc.Load(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer svc.Close()
//
//	m, err := svc.CreateMap(ctx, service.CreateMapRequest{Name: "Overworld", Preset: "standard"})
//	sess, err := svc.OpenSession(ctx, service.OpenSessionRequest{MapID: m.ID})
//	svc.Dispatch(ctx, sess.ID, controller.PointerDown(controller.ButtonLeft, 10, 10, selection.Modifiers{}))
package service
