// Package region holds the named cell sets drawn on a map.
//
// Core Types:
//
// Region is a named set of cells with a colour derived from its id, an optional
// nested map link and an optional environment Override. Store keeps the
// regions of every open map in memory, in creation order, and is the
// authoritative copy while a map is being edited.
//
// Base Region:
//
// Every map records one base region id. The region with exactly that id
// covers the whole map and is excluded from Overlay, RealRegionCount,
// RegionsAt, OverrideAt and CoveredCells. No other property of a region is
// consulted to decide whether it is the base region.
//
// Overlap:
//
// Several regions may claim the same cell. The store never resolves overlap;
// removing cells from one region leaves every other region untouched. When an
// override must be chosen for a shared cell, OverrideAt picks the most
// recently created region that has one.
//
// Error Handling:
//
// Cells outside the map, empty names, duplicate ids and malformed overrides
// are reported as *ValidationError values, combined with multierr when more
// than one applies. errors.Is(err, ErrValidation) matches all of them.
package region
