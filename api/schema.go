package api

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/invopop/jsonschema"

	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/controller"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/coords"
	"github.com/B2Gdevs/magicborn-opensource-sub000/editor/service"
)

// schemaTypes are the request bodies the API accepts, by schema name
var schemaTypes = map[string]interface{}{
	"map":              &service.CreateMapRequest{},
	"map_config":       &coords.Config{},
	"region":           &service.CreateRegionRequest{},
	"region_update":    &service.UpdateRegionRequest{},
	"placement":        &service.CreatePlacementRequest{},
	"session":          &service.OpenSessionRequest{},
	"action":           &controller.Action{},
	"selection_region": &service.SelectionRegionRequest{},
	"world_region":     &service.WorldRegionRequest{},
}

// Schema returns the JSON schema of a named request body
func Schema(name string) (*jsonschema.Schema, bool) {
	v, ok := schemaTypes[name]
	if !ok {
		return nil, false
	}
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return r.Reflect(v), true
}

// SchemaNames lists the available schemas in order
func SchemaNames() []string {
	names := make([]string, 0, len(schemaTypes))
	for name := range schemaTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"schemas": SchemaNames(),
	})
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	schema, ok := Schema(name)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown schema: "+name)
		return
	}
	respondJSON(w, http.StatusOK, schema)
}
