package domain

import "errors"

var (
	ErrInvalidRule        = errors.New("tips: invalid rule")
	ErrDuplicateRule      = errors.New("tips: duplicate rule id")
	ErrUnknownTrigger     = errors.New("tips: unknown trigger type")
	ErrUnknownObjective   = errors.New("tips: unknown objective")
	ErrUnsupportedVersion = errors.New("tips: unsupported document version")
)
