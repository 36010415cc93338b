package auth

// The two roles the service knows about. Any other value is rejected at
// sign-up and again at every session check.
const (
	RoleRT          = "RT"
	RoleRadiologist = "Radiologist"
)

// Roles lists every known role.
var Roles = []string{RoleRT, RoleRadiologist}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	for _, r := range Roles {
		if role == r {
			return true
		}
	}
	return false
}
