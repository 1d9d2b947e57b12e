package domain

// OTPEnrollment is a freshly generated TOTP secret and the otpauth:// URI
// an authenticator app scans.
type OTPEnrollment struct {
	URI    string
	Secret string
}
