package domain

import "errors"

var (
	ErrUnbalancedQuote = errors.New("unbalanced quote")
	ErrUnknownFlag     = errors.New("unknown option")
	ErrMissingValue    = errors.New("option needs a value")
)
