package users

import "errors"

var (
	ErrUnknownRole = errors.New("unknown role")
)
