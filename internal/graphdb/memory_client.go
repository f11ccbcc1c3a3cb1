package graphdb

import (
	"context"
	"sync"
)

// MemoryClient is an in-memory Client for repository tests. Results are
// registered per cypher statement, so concurrent callers get stable answers
// regardless of call order.
type MemoryClient struct {
	mu           sync.Mutex
	writeCalls   []Statement
	readCalls    []Statement
	batches      [][]Statement
	results      map[string]Result
	failOn       map[string]error
	err          error
	connectivity error
	closed       bool
}

// NewMemoryClient returns an empty client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		results: make(map[string]Result),
		failOn:  make(map[string]error),
	}
}

// WithError makes every subsequent query fail with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithConnectivityError forces VerifyConnectivity to return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// On registers the result returned whenever cypher is executed.
func (m *MemoryClient) On(cypher string, res Result) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[cypher] = res
	return m
}

// FailOn makes queries matching cypher fail with err, inside or outside a batch.
func (m *MemoryClient) FailOn(cypher string, err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[cypher] = err
	return m
}

func (m *MemoryClient) ExecuteWrite(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errorFor(cypher); err != nil {
		return Result{}, err
	}
	m.writeCalls = append(m.writeCalls, Statement{Cypher: cypher, Params: cloneMap(params)})
	return m.results[cypher], nil
}

func (m *MemoryClient) ExecuteRead(_ context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.errorFor(cypher); err != nil {
		return Result{}, err
	}
	m.readCalls = append(m.readCalls, Statement{Cypher: cypher, Params: cloneMap(params)})
	return m.results[cypher], nil
}

// ExecuteWriteBatch records the batch only if every statement would succeed.
func (m *MemoryClient) ExecuteWriteBatch(_ context.Context, statements []Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch := make([]Statement, 0, len(statements))
	for _, stmt := range statements {
		if err := m.errorFor(stmt.Cypher); err != nil {
			return err
		}
		batch = append(batch, Statement{Cypher: stmt.Cypher, Params: cloneMap(stmt.Params)})
	}
	if len(batch) > 0 {
		m.batches = append(m.batches, batch)
	}
	return nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// WriteCalls returns the single write statements executed so far.
func (m *MemoryClient) WriteCalls() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.writeCalls...)
}

// ReadCalls returns the read statements executed so far.
func (m *MemoryClient) ReadCalls() []Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Statement(nil), m.readCalls...)
}

// Batches returns the committed write batches.
func (m *MemoryClient) Batches() [][]Statement {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]Statement(nil), m.batches...)
}

// Closed reports whether Close was called.
func (m *MemoryClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MemoryClient) errorFor(cypher string) error {
	if m.err != nil {
		return m.err
	}
	return m.failOn[cypher]
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
