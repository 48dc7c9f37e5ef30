package events

import "time"

// GraphQLStart is emitted before executing a GraphQL operation.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after executing a GraphQL operation.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// ResolverError is emitted when a field resolver or leaf serialization fails.
// Path is the response path rendered with dots, e.g. "users.0.avatarUrl".
type ResolverError struct {
	ObjectType string
	Field      string
	Path       string
	Err        error
}
