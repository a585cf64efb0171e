package models

// Identity is the calling user's context as asserted by the gateway. It is
// built once by the identity middleware and passed explicitly into every
// operation — nothing in the service reads ambient session state.
type Identity struct {
	UserID        string
	DisplayName   string
	Roles         []string
	Banned        bool
	EmailVerified bool
}

// SignedIn reports whether the gateway attached a user at all.
func (i Identity) SignedIn() bool {
	return i.UserID != ""
}

// IsOperator reports whether the identity carries an operator role.
func (i Identity) IsOperator() bool {
	for _, r := range i.Roles {
		if r == "admin" || r == "operator" {
			return true
		}
	}
	return false
}
