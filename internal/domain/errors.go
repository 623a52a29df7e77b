package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrDuplicate     = errors.New("duplicate record")
	ErrConfiguration = errors.New("invalid persistence configuration")
	ErrCommit        = errors.New("commit failed")
	ErrDisposed      = errors.New("persistence context is closed")
	ErrConcurrentUse = errors.New("persistence context used concurrently")
)
