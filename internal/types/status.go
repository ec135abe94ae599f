package types

// Status is a type for the status of a resource (e.g. invoice, transaction) in the Database
// This is used to track the lifecycle of a row and to determine if it should be included in queries.
// It is independent of the business status of the entity.
type Status string

const (
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
	StatusDeleted   Status = "deleted"
)
