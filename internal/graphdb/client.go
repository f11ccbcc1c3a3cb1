// Package graphdb talks to the Bolt-compatible graph store that holds the
// map dataset.
package graphdb

import (
	"context"
	"errors"
	"time"
)

// Client is what the map repository needs from the graph store.
type Client interface {
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWriteBatch runs every statement in one transaction; nothing is
	// committed if any statement fails.
	ExecuteWriteBatch(ctx context.Context, statements []Statement) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Statement is a single parameterised cypher query.
type Statement struct {
	Cypher string
	Params map[string]any
}

// Result holds the records of one query.
type Result struct {
	Records []Record
}

// Record maps return column names to values.
type Record map[string]any

// Options configures the Neo4j client.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	AcquireTimeout time.Duration
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
