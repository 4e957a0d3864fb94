// Package user provides the user record and the User screen of the console.
//
// Users reference their role by id (RoleID) and carry the role's name for display.
// Records written by clients that only know names have RoleID 0 and are matched by name.
// At mount the screen fetches /users and /roles in parallel; the roles become the options
// of the role select and are not fetched again until the screen is remounted, so roles
// added elsewhere afterwards do not show up.
//
// A user's name can only be set in the add dialog. Adding or saving a user requires a
// name, one of the loaded roles and a status of Active or Inactive. Orphans lists stored
// users whose role reference no longer resolves.
//
//	users := user.NewScreen(
//		resource.NewClient[user.User](baseURL, "users"),
//		resource.NewClient[role.Role](baseURL, "roles"),
//		logger,
//	)
//	err := users.Load(ctx)
package user
