package model

// AuthorizationOutcome is either Authorized with a principal and payload, or Rejected with a reason.
type AuthorizationOutcome struct {
	Authorized bool
	Principal  string
	Payload    string
	Reason     Reason
}

func Authorized(principal, payload string) AuthorizationOutcome {
	return AuthorizationOutcome{Authorized: true, Principal: principal, Payload: payload}
}

func Rejected(reason Reason) AuthorizationOutcome {
	return AuthorizationOutcome{Reason: reason}
}
