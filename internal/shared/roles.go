package shared

// Role values stored on user accounts. The role is the sole
// authorization attribute in the system.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// ValidRole reports whether the value is a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStaff
}
