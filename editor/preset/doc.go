// Package preset manages named coordinate config templates.
//
// Presets live as <id>.json files in a directory:
//
//	{
//	  "name": "Standard",
//	  "description": "4k map with 16px cells",
//	  "config": {"imageWidth": 4096, "imageHeight": 4096, "unrealWidth": 409600,
//	             "unrealHeight": 409600, "baseCellSize": 16, "zoneSize": 8}
//	}
//
// The Manager caches loaded presets and resolves a default: the "standard"
// preset if it exists, else the first valid preset, else Builtin. A preset
// only supplies defaults at map creation; the map keeps its own copy of the
// config afterwards.
package preset
