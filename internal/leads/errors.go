package leads

import "errors"

var (
	// ErrInvalidType is returned when type is neither phone nor online.
	ErrInvalidType = errors.New("invalid type")

	// ErrInvalidGender is returned for genders outside 남/여.
	ErrInvalidGender = errors.New("invalid gender")

	// ErrInvalidIdentity is returned when rrnBack arrives without rrnFront.
	ErrInvalidIdentity = errors.New("rrnBack requires rrnFront")

	// ErrInvalidBody is returned when the request body is not a JSON object.
	ErrInvalidBody = errors.New("invalid JSON body")

	// ErrInvalidFilter is returned for malformed export filters.
	ErrInvalidFilter = errors.New("invalid filter")
)
