// Schoolgate - School Administration Access Control
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/schoolgate

/*
Package auth authenticates staff identities and administers their credentials.

# Login

Service.Login verifies a login name and secret against the bcrypt hash in the
credential store and returns a Principal carrying the identity and its
resolved permission set. The attempt is evaluated in this order:

 1. Unknown login name: InvalidCredentials, logged as login.unknown_user.
    A dummy bcrypt comparison keeps the timing close to a real failure.
 2. Lock window still open: AccountLocked with the remaining minutes.
    The attempt counter is not touched.
 3. Lock window elapsed: the lock and counter are cleared before continuing.
 4. Inactive identity: AccountInactive.
 5. Wrong secret: the counter is incremented. Reaching the configured maximum
    (default 5) locks the identity for the configured window (default 15m).
 6. Success: counter and lock cleared, LastAccessAt set.

Each branch appends exactly one access log entry in the same store
transaction as the identity update, so a store outage leaves neither behind.

# Administration

ResetCredential, CreateIdentity, Activate and Deactivate require the acting
identity to be an active administrator. Generated temporary secrets are 12
random bytes encoded as base64url and are returned once:

	created, err := svc.CreateIdentity(ctx, auth.NewIdentity{
	    StaffRef:  "T-0042",
	    LoginName: "ines",
	    Role:      "teacher",
	    ActorID:   admin.ID,
	})
	// hand created.TemporarySecret to the teacher

# Errors

Every operation returns *Error. Use errors.Is with the sentinels
(ErrInvalidCredentials, ErrAccountLocked, ...) or KindOf to branch on the
failure kind.
*/
package auth
