package config

import (
	"errors"

	"gopkg.in/validator.v2"
)

var (
	ErrInvalidLogLevel  = validator.TextErr{Err: errors.New("invalid log level, must be one of debug, info, warn, error")}
	ErrInvalidPortRange = errors.New("DEPLOYMENT_PORT_START must be less than DEPLOYMENT_PORT_END")
)
