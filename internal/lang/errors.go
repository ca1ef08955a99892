package lang

import "errors"

// ErrInvalid indicates an unsupported target language code.
var ErrInvalid = errors.New("invalid language code")
