package config

import "errors"

// ErrInvalidPrefix is returned by ValidatePrefix.
var ErrInvalidPrefix = errors.New("invalid prefix")
