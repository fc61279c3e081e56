package tms

import "fmt"

// CollectionError reports a failure of a whole-collection operation
// (counting, advancing the ID cursor). The exporter treats it as fatal.
type CollectionError struct {
	Op  string
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("tms: collection %s failed: %v", e.Op, e.Err)
}

func (e *CollectionError) Unwrap() error { return e.Err }

// ItemError reports a failure fetching one object. The exporter skips the
// object and keeps iterating.
type ItemError struct {
	ObjectID int64
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("tms: fetch object %d failed: %v", e.ObjectID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
