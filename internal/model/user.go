package model

// Roles carried in the "role" claim of an access token.  Identity itself is
// issued elsewhere; this service only checks the claim.
const (
    RoleStudent = "STUDENT"
    RoleAdmin   = "ADMIN"
)
