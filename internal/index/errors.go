package index

import "errors"

var ErrNilResolver = errors.New("merger requires a batch resolver")
