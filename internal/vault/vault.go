// Package vault persists the bearer session as two named slots: token and
// token type. Reads never fail; a session is present only when both slots are.
package vault

// Session is the bearer-authentication pair issued by the backend on verify.
type Session struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}

// Valid reports whether both slots are populated.
func (s Session) Valid() bool {
	return s.Token != "" && s.TokenType != ""
}

// Vault stores at most one session. Write is atomic with respect to Read:
// a reader observes either the old pair or the new pair, never a mix.
type Vault interface {
	Read() (Session, bool)
	Write(session Session) error
	Clear() error
}
