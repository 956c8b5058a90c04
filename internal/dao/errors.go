package dao

import "errors"

var (
	// ErrNotFound means the key/document does not exist. Distinct from
	// transient I/O failures, which are returned as wrapped driver errors.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on id collisions at create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrConflict means a compare-and-set did not match; another writer won.
	ErrConflict = errors.New("conflict")
)
