package model

import "github.com/rotisserie/eris"

// ErrNotFound is wrapped by record-store lookups that find nothing.
var ErrNotFound = eris.New("not found")
