package opensearch

import "errors"

var (
	// ErrConnectionFailed indicates the client could not be created.
	ErrConnectionFailed = errors.New("opensearch: connection failed")

	// ErrHealthcheckFailed indicates the cluster is unreachable.
	ErrHealthcheckFailed = errors.New("opensearch: healthcheck failed")
)
