package models

// LoginOutcome classifies the deterministic result of evaluating a login
// request. Outcomes are computed values handed to the transport layer; only
// store or verifier faults travel the error channel.
type LoginOutcome int

const (
	LoginSuccess LoginOutcome = iota
	LoginInvalidInput
	LoginAddressBlocked
	LoginInvalidCredential
	LoginAccountSuspended
)

// LoginResult carries a login outcome plus everything the handler needs to
// shape the response for it.
type LoginResult struct {
	Outcome           LoginOutcome
	Message           string
	RetryAfterMinutes int    // set for LoginAccountSuspended
	Token             string // set for LoginSuccess
	Account           *PublicProfile
}
