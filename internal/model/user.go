package model

// Roles carried in the JWT role claim and users.role.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// User represents an application user as stored in the `users` table.
// Credentials are managed by the identity service and are not loaded here.
type User struct {
	ID    uint64 // users.id
	Email string // users.email
	Role  string // users.role
}

// Caller identifies who invokes a core operation.
type Caller struct {
	UserID uint64
	Role   string
}

// IsAdmin reports whether the caller has administrative rights.
func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }
