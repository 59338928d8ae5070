// Package store provides the backing-store collaborators of the editor.
//
// MapService, RegionService and PlacementService are plain CRUD interfaces
// with no transactions. FileStore implements all three on the local file
// system, one JSON file per record:
//
//	<data-dir>/maps/<id>.json
//	<data-dir>/regions/<id>.json
//	<data-dir>/placements/<id>.json
//
// Error Handling:
//
// A missing record wraps ErrNotFound and a duplicate create wraps ErrExists.
// Any other failed call returns a
// *PersistenceError, which the editor treats as recoverable: in-memory state
// is kept and the call may be retried with Retry. Ids that cannot be used as
// file names wrap ErrInvalidID.
package store
