package domain

import "errors"

var (
	// ErrDuplicateItem signals that a content item with the same
	// (tenant_id, identity_key) already exists. Benign during ingestion:
	// the unique constraint, not the prior existence check, is the source
	// of truth under concurrent polls.
	ErrDuplicateItem = errors.New("duplicate content item")

	// ErrUnsupportedChannel is returned before any external call when a
	// distribution request names a channel or platform with no registered
	// capability.
	ErrUnsupportedChannel = errors.New("unsupported distribution channel")

	// ErrConfigurationMissing marks a capability whose required credential
	// is absent. Treated like a permanent delivery or enrichment failure
	// for that call.
	ErrConfigurationMissing = errors.New("required configuration missing")

	ErrSourceNotFound  = errors.New("source not found")
	ErrContentNotFound = errors.New("content item not found")
	ErrPlanNotFound    = errors.New("content plan not found")
	ErrTaskNotFound    = errors.New("distribution task not found")
)
