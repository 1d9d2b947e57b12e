package policy

import "fmt"

// Auth is the authentication an operation demands before policies run.
type Auth int

const (
	AuthNone Auth = iota
	AuthBearer
)

// Requirement is what the caller of an operation must satisfy.
type Requirement struct {
	Auth     Auth
	Policies []Policy
}

// Operation names a transport-independent action.
type Operation string

const (
	OpSignUp       Operation = "sign_up"
	OpSignIn       Operation = "sign_in"
	OpRefresh      Operation = "refresh"
	OpGoogleSignIn Operation = "google_sign_in"
	OpTFAGenerate  Operation = "generate_otp_enrollment"
	OpTFAConfirm   Operation = "enable_tfa"
	OpGetUser      Operation = "get_user"
	OpUpdateUser   Operation = "update_user"
	OpDeleteUser   Operation = "delete_user"
)

// Operations is the authorization table for every exposed operation.
var Operations = map[Operation]Requirement{
	OpSignUp:       {Auth: AuthNone},
	OpSignIn:       {Auth: AuthNone},
	OpRefresh:      {Auth: AuthNone},
	OpGoogleSignIn: {Auth: AuthNone},
	OpTFAGenerate:  {Auth: AuthBearer},
	OpTFAConfirm:   {Auth: AuthBearer},
	OpGetUser:      {Auth: AuthBearer},
	OpUpdateUser:   {Auth: AuthBearer, Policies: []Policy{SelfOrAdmin{}}},
	OpDeleteUser:   {Auth: AuthBearer, Policies: []Policy{OnlyAdmin{}}},
}

// CheckOperations verifies every policy in ops has a handler in r.
func CheckOperations(r *Registry, ops map[Operation]Requirement) error {
	for op, req := range ops {
		if err := r.Check(req.Policies...); err != nil {
			return fmt.Errorf("operation %s: %w", op, err)
		}
	}
	return nil
}
