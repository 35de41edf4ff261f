package session

// State is the session payload the login flow operates on. LoggedIn
// distinguishes a fully authenticated session from one where only the
// primary factor passed: after a correct password on a two-factor account
// the identity fields are set but LoggedIn stays false until the step-up
// succeeds.
type State struct {
	// ID is the server-side session identifier. Empty for cookie-backed
	// sessions, which have no server-side record.
	ID string `json:"-"`

	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	LoggedIn bool `json:"logged_in,omitempty"`

	// RedirectTarget is the originally requested URL captured by the
	// protecting middleware before the login redirect. Cleared on success.
	RedirectTarget string `json:"target,omitempty"`
}

// Anonymous reports whether the state carries no identity at all.
func (s *State) Anonymous() bool {
	return s.Name == "" && s.Email == ""
}

// Reset clears all fields except the server-side ID.
func (s *State) Reset() {
	s.Name = ""
	s.Email = ""
	s.LoggedIn = false
	s.RedirectTarget = ""
}
