package credstore

import "errors"

// Sentinel errors returned by Store methods. Callers compare against these
// (with == or errors.Is) to decide which one-line reply to send back to a
// client.
var (
	ErrStoreUnavailable = errors.New("credstore: store unavailable")
	ErrUsernameTaken     = errors.New("credstore: username already exists")
	ErrUserNotFound      = errors.New("credstore: user not found")
	ErrWrongPassword     = errors.New("credstore: wrong password")
	ErrInvalidUsername   = errors.New("credstore: invalid username")
)
