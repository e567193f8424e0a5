package apiquery

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQueryParameters = errors.New("invalid query parameters")
	ErrInvalidLimit           = errors.New("limit must be an integer greater than 0")
	ErrInvalidPagination      = errors.New("page and limit must be integers greater than 0")
	ErrPageOutOfRange         = errors.New("this page does not exist")
)

// IsClientError reports whether err was caused by bad request input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidQueryParameters) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrInvalidPagination) ||
		errors.Is(err, ErrPageOutOfRange)
}

func paramError(kind error, param string, value any) error {
	return fmt.Errorf("%w: %s=%v", kind, param, value)
}
