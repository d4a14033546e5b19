package storage

import (
	"errors"
	"fmt"
)

// Sentinel errors. errors.Is で判別してください。
var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidFile は DeleteOne に空のファイル名や存在しないファイルが渡されたときに返されます。
	ErrInvalidFile = fmt.Errorf("%w: invalid error file", ErrInvalidArgument)
	ErrNoDocument  = errors.New("no json document found at path")
)
