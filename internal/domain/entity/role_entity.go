package entity

// Role names granted through account_roles.
// Only used to build an actor's capabilities at login.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Actor is the identity performing an operation, passed explicitly to every
// lifecycle call.
type Actor struct {
	ID    string
	Admin bool
}

// System is the actor used by background jobs.
var System = Actor{ID: "system", Admin: true}

// HasRole reports whether roles contains name.
func HasRole(roles []string, name string) bool {
	for _, r := range roles {
		if r == name {
			return true
		}
	}
	return false
}
