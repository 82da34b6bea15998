package game

const (
	ErrCodeDuplicate       = "duplicate"
	ErrCodeInvalidAlphabet = "invalid_alphabet"
	ErrCodeInvalidMedia    = "invalid_media"
	ErrKindStartGame       = "start_game"
	ErrKindHostOnly        = "host_only"
)

// ValidationError is a user-correctable rejection (duplicate variant,
// mixed alphabets, repeated upload). It is reported only to the
// submitting client and never affects other participants.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StateError reports a command that is not legal in the room's current
// state. Room state is left unchanged.
type StateError struct {
	Kind    string
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}
