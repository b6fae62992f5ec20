package planning

import "errors"

var (
	ErrSessionNotFound       = errors.New("session_not_found")
	ErrSessionConflict       = errors.New("session_conflict")
	ErrSessionNotConfirmable = errors.New("session_not_confirmable")
	ErrInvalidMode           = errors.New("invalid_mode")
	ErrEmptyMessage          = errors.New("empty_message")
	ErrGenerationFailed      = errors.New("plan_generation_failed")
	ErrMaterializationFailed = errors.New("materialization_failed")
)
