// Package screen holds the table screen shared by the role and user pages.
//
// A Screen[T] owns one in-memory collection of records and the modal dialog used to add or
// edit them. The backend is only reached through a Client[T]; the collection is reconciled
// after a call succeeds and never before it:
//
//	Idle --Load--> Loading --ok--> Loaded
//	                       \--err--> Failed   (collection empty, no retry)
//
// Load runs once per screen instance; a remount is a new Screen. Add and edit go through
// a draft that is a deep copy of the row, so editing nested slices never touches the row
// before the update succeeds. A submit that fails leaves the dialog open with the draft
// intact.
//
// Concurrent duplicate operations are rejected: while a create, update or delete for an id
// is in flight, the same action on the same id returns ErrCodeConflict. The screen mutex
// is never held across a network call, and an operation that completes after its dialog
// was dismissed still updates the collection.
package screen
