package storage

// Sink receives command output records.
type Sink interface {
	Put(records ...interface{}) error
}
