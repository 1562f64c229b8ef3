// Package accounts provides the user account lifecycle for a small web
// application: registration, cookie based JWT sessions, profile editing,
// soft deletion, and reactivation.
//
// Account lifecycle:
//   - Users carry an IsActive flag persisted via Bun. Deleting an account
//     flips the flag instead of removing the row, so the email stays
//     reserved and the account can come back through the reactivation
//     flow with the original password.
//   - Deactivation stamps both last_login_at and updated_at. Reactivation
//     stamps only updated_at. Regular logins and logouts stamp only
//     last_login_at.
//
// Commands:
//   - Writes go through message handlers (CreateUserHandler,
//     UpdateUserHandler, DeactivateUserHandler, ReactivateUserHandler)
//     that run inside a single transaction via RepositoryManager. A
//     failed precondition, such as a wrong current password during a
//     password change, aborts the whole update.
//
// Sessions:
//   - Auther verifies credentials through an IdentityProvider and issues
//     HS256 JWTs. RouteAuthenticator moves tokens in and out of an
//     HTTP-only cookie and guards routes with ProtectedRoute middleware.
//     Unknown emails and wrong passwords are indistinguishable to the
//     caller.
package accounts
