package repository

import "errors"

var (
	// ErrAlreadyLinked is returned when a client already carries a different provider account id.
	ErrAlreadyLinked = errors.New("client already linked to a different provider account")
	// ErrAccountTaken is returned when the provider account id belongs to another client.
	ErrAccountTaken = errors.New("provider account already linked to another client")
	// ErrStaleToken is returned when a conditional token update lost against a concurrent change.
	ErrStaleToken = errors.New("onboarding token changed concurrently")
)
