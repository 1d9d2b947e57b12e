package domain

import "strconv"

// Identity is the verified principal behind a token. A zero Subject never
// identifies a user.
type Identity struct {
	Subject int64
	Email   string
	Role    Role

	// RefreshTokenID is only set for identities decoded from refresh tokens.
	RefreshTokenID string
}

func (i Identity) IsZero() bool { return i.Subject == 0 }

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// SubjectString formats Subject the way it appears in the "sub" claim.
func (i Identity) SubjectString() string {
	return strconv.FormatInt(i.Subject, 10)
}
