package dairy

import "errors"

var (
	// ErrInvalidState is returned for a life phase outside Open, Pregnant, DoNotBreed, Exit.
	ErrInvalidState = errors.New("invalid life state")
	// ErrPrecondition is returned when an operation needs a generated state space that does not exist yet.
	ErrPrecondition = errors.New("state space not generated")
	// ErrConfiguration is returned for a lactation number the yield curve has no parameters for.
	ErrConfiguration = errors.New("lactation number out of range")
	// ErrValidation is returned for malformed herd parameters.
	ErrValidation = errors.New("invalid herd parameters")
	// ErrUnindexedSuccessor is returned when a successor state was never generated.
	ErrUnindexedSuccessor = errors.New("successor not in generated state space")
)
