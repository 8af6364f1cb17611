package repository

import "errors"

var (
	// ErrTableNotFound indicates no rule table is registered under a name
	ErrTableNotFound = errors.New("rule table not found")

	// ErrNoTables indicates the repository was built without any rule table
	ErrNoTables = errors.New("no rule tables registered")
)
