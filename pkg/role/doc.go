// Package role provides the role record and the Role screen of the console.
//
// A role has a client-assigned integer id, a non-empty name and a list of permission
// strings. The console edits permissions through a fixed checkbox vocabulary
// (DefaultPermissions: Read, Write, Delete). Stored roles may carry other strings; those
// are kept as-is and shown, but the checkboxes never add or remove them.
//
// # Basic Usage
//
//	client := resource.NewClient[role.Role]("http://localhost:3001", "roles")
//	screen := role.NewScreen(client)
//	if err := screen.Load(ctx); err != nil {
//		// the table stays empty for this mount
//	}
//
//	screen.OpenAdd()
//	_ = screen.SetName("Viewer")
//	_ = screen.TogglePermission("Read")
//	created, err := screen.SubmitAdd(ctx)
//
// # Toggling
//
// TogglePermission removes a permission that is present and appends one that is absent.
// Applying it twice restores the same set; the original order comes back only when the
// permission was absent or last, since a removed permission is re-added at the end:
//
//	role.TogglePermission([]string{"Read"}, "Write") // [Read Write]
//	role.TogglePermission([]string{"Read", "Write"}, "Read") // [Write]
//
// # Related Packages
//
//   - pkg/screen - the table screen state machine this package configures
//   - pkg/user - users reference roles by id
package role
