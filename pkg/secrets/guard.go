package secrets

import (
	"crypto/subtle"
	"errors"
)

var ErrDenied = errors.New("access denied")

// Guard gates privileged messages (remote shutdown) behind one shared access
// code. It is a placeholder trust boundary: anyone who knows the code is
// trusted, and peers are not authenticated individually.
type Guard struct {
	code []byte
}

func NewGuard(code string) *Guard {
	Register(code)
	return &Guard{code: []byte(code)}
}

func (g *Guard) Check(candidate string) error {
	if g == nil || len(g.code) == 0 {
		return ErrDenied
	}
	if subtle.ConstantTimeCompare(g.code, []byte(candidate)) != 1 {
		return ErrDenied
	}
	return nil
}
