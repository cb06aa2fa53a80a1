package card

import "errors"

var (
	// ErrNotFound is returned when no card matches the given card secret.
	ErrNotFound = errors.New("card not found")

	// ErrAlreadyExists is returned on create/import of a duplicate card secret.
	ErrAlreadyExists = errors.New("card already exists")

	// ErrInvalidCardID is returned for a malformed card secret.
	ErrInvalidCardID = errors.New("invalid card id format")

	// ErrNotActivated is returned by operations that require a card number.
	ErrNotActivated = errors.New("card is not activated")

	// ErrNotActivatable is returned by the activate write when the card is
	// expired or deleted. Expired is terminal for the activation path.
	ErrNotActivatable = errors.New("card can no longer be activated")
)
