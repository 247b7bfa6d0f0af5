/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ghosts

import "errors"

var (
	ErrInsufficientPool = errors.New("not enough free ghost names")
	ErrNameNotFound     = errors.New("ghost name not found")
	ErrNameTaken        = errors.New("ghost name already taken")

	ErrMissingColumn = errors.New("missing column")
	ErrEmptyName     = errors.New("empty ghost name")
	ErrDuplicateName = errors.New("duplicate ghost name")

	ErrDuplicateHolder = errors.New("email already holds a ghost name")
)
