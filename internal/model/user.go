package model

import "time"

// User represents an application user record as stored in the `users`
// table.  Email doubles as the booking owner key: bookings reference
// their owner by email rather than id, so rows stay meaningful even if
// an account is deleted and recreated.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  Name         – display name.
//  Picture      – avatar URL (may be empty).
//  PasswordHash – bcrypt hashed password.
//  Role         – "user" or "admin".
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	Name         string    // users.name
	Picture      string    // users.picture
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user; only the SHA-256 hash of the raw
// token value is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
