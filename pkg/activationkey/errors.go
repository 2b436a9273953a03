package activationkey

import "errors"

var (
	ErrKeyNotFound = errors.New("activation key not found")

	// ErrKeyCollision is returned by stores when a generated key value
	// already exists; issuance retries generation a bounded number of times.
	ErrKeyCollision = errors.New("activation key value already exists")

	// ErrGenerationExhausted is returned when issuance fails to produce a
	// unique key value within the retry budget.
	ErrGenerationExhausted = errors.New("could not generate a unique activation key")

	ErrInvalidStatusTransition = errors.New("invalid activation key status transition")
)
