package platform

import "errors"

var (
	// ErrBadRequest is returned for a 400 response.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized is returned for a 401 or 403 response.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned for a 404 response, usually an unknown dataset.
	ErrNotFound = errors.New("dataset not found")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrMissingData is returned when a response has no "data" key.
	ErrMissingData = errors.New("response has no data")

	// ErrRemote is returned when a response reports status "error".
	ErrRemote = errors.New("remote error")

	// ErrMissingToken is returned when publishing without a bearer token.
	ErrMissingToken = errors.New("missing dataset token")
)
