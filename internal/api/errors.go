package api

import (
	"errors"
	"fmt"
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	Code     int
	Status   string
	Endpoint string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d %s", e.Code, e.Status)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
