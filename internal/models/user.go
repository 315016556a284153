package models

import "time"

// User is a directory entry for a verified identity. The role mirrors the
// role claim the identity provider issued; it is not chosen here.
type User struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Role        string    `db:"role"`
	CreatedAt   time.Time `db:"created_at"`
	LastLoginAt time.Time `db:"last_login_at"`
}
