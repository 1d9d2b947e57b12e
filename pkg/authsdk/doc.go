/*
Package authsdk is a Go client for the iamcore HTTP API and the home of the
wire types and error envelope the server writes.

# Client vs Session

  - Client: public endpoints (sign-up, sign-in, refresh, Google sign-in, health)
  - Session: bearer-authenticated endpoints, refreshing its token pair when
    the access token is about to expire

	client := authsdk.NewClient("https://iam.example.com")

	id, err := client.SignUp(ctx, "ann@example.com", "correct horse battery")

	session, err := client.Authenticate(ctx, "ann@example.com", "correct horse battery", "")
	user, err := session.GetUser(ctx, id)

# Errors

Every non-2xx response is returned as an *APIError carrying the status code
and the server's error code. Compare with errors.Is against the predefined
values:

	if errors.Is(err, authsdk.ErrUnauthorized) {
		// bad credentials, a wrong 2FA code, or a rejected refresh token
	}

A Session whose refresh is rejected drops its tokens; build a new one with
Client.Authenticate.
*/
package authsdk
