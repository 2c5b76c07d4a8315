package wallet

import "fmt"

// State is the custody lifecycle position of the session wallet.
type State string

const (
	StateNoWallet                   State = "NoWallet"
	StateCreating                   State = "Creating"
	StateAwaitingBackupConfirmation State = "AwaitingBackupConfirmation"
	StateImporting                  State = "Importing"
	StateReady                      State = "Ready"
	StateExporting                  State = "Exporting"
	StateDeleted                    State = "Deleted" // terminal, local only
)

// validTransitions is the full custody state machine. Import is allowed
// from Ready because a user may replace their local wallet with another
// seed phrase; Deleted is terminal.
var validTransitions = map[State][]State{
	StateNoWallet:                   {StateCreating, StateImporting, StateReady},
	StateCreating:                   {StateAwaitingBackupConfirmation, StateNoWallet},
	StateAwaitingBackupConfirmation: {StateReady, StateDeleted},
	StateImporting:                  {StateReady, StateNoWallet},
	StateReady:                      {StateExporting, StateImporting, StateDeleted},
	StateExporting:                  {StateReady},
	StateDeleted:                    {},
}

// transition validates a state change. It is pure: the engine owns the
// actual state mutation.
func transition(from, to State) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("invalid wallet state transition %s -> %s", from, to)
}
