package invite

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested state change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

// registrationTransitions is the registration lifecycle. Re-inviting a
// pending account replaces its credential, ACTIVE is terminal.
var registrationTransitions = map[AccountState]map[AccountState]struct{}{
	StateCreated: {
		StatePending: {},
	},
	StatePending: {
		StatePending: {},
		StateActive:  {},
	},
}

// CanTransition reports whether an account may move from one state to another
func CanTransition(from, to AccountState) bool {
	targets, ok := registrationTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// ValidateTransition returns an error wrapping ErrInvalidTransition when
// account can not move to target.
func ValidateTransition(account *Account, target AccountState) error {
	from := account.State()
	if CanTransition(from, target) {
		return nil
	}
	return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, target)
}
