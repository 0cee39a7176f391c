// Package graphstore reads and writes the property graph through the Neo4j
// Bolt driver.
package graphstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	neo4jconfig "github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/apptype"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/cypher"
	"github.com/ZanzyTHEbar/graphvec-bridge-go/internal/metrics"
)

// Neo4jStore is a graph store client backed by a single driver handle.
// It is safe for concurrent use; each call opens and closes its own session.
type Neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// New opens a driver for cfg. No network traffic happens until the first
// session; call VerifyConnectivity to fail early.
func New(cfg *Config, logger *zap.Logger) (*Neo4jStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jconfig.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

// VerifyConnectivity checks that the engine is reachable with the configured credentials.
func (s *Neo4jStore) VerifyConnectivity(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return classify("verify connectivity", err)
	}
	return nil
}

// Close releases the driver and its pooled connections.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Execute runs a write statement and discards its result.
func (s *Neo4jStore) Execute(ctx context.Context, statement string) (err error) {
	done := metrics.TimeOp("graph_execute")
	success := false
	defer func() { done(success) }()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, statement, nil)
	if err != nil {
		return classify("execute", err)
	}
	summary, err := result.Consume(ctx)
	if err != nil {
		return classify("execute", err)
	}
	counters := summary.Counters()
	s.logger.Debug("statement executed",
		zap.Int("nodes_created", counters.NodesCreated()),
		zap.Int("relationships_created", counters.RelationshipsCreated()),
	)
	success = true
	return nil
}

// FetchAll returns every (subject, relationship, object) triple in the graph.
// The whole result is materialised in memory.
func (s *Neo4jStore) FetchAll(ctx context.Context) ([]apptype.GraphRecord, error) {
	return s.fetch(ctx, "graph_fetch_all", cypher.TraversalStatement())
}

// FetchFiltered runs a read statement and decodes each row into a GraphRecord.
func (s *Neo4jStore) FetchFiltered(ctx context.Context, statement string) ([]apptype.GraphRecord, error) {
	return s.fetch(ctx, "graph_fetch_filtered", statement)
}

func (s *Neo4jStore) fetch(ctx context.Context, op, statement string) ([]apptype.GraphRecord, error) {
	done := metrics.TimeOp(op)
	success := false
	defer func() { done(success) }()

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead, DatabaseName: s.database})
	defer session.Close(ctx)

	result, err := session.Run(ctx, statement, nil)
	if err != nil {
		return nil, classify("fetch", err)
	}
	rows, err := result.Collect(ctx)
	if err != nil {
		return nil, classify("fetch", err)
	}

	records := make([]apptype.GraphRecord, 0, len(rows))
	for i, row := range rows {
		rec, ok := DecodeRecord(row)
		if !ok {
			s.logger.Warn("skipping row without a node", zap.Int("row", i), zap.Strings("keys", row.Keys))
			continue
		}
		records = append(records, rec)
	}
	success = true
	return records, nil
}

// classify wraps driver errors with the matching apptype sentinel.
func classify(op string, err error) error {
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) && strings.HasPrefix(nerr.Code, "Neo.ClientError.Statement.") {
		return fmt.Errorf("%s: %w: %w", op, apptype.ErrQuerySyntax, err)
	}
	var cerr *neo4j.ConnectivityError
	if errors.As(err, &cerr) || neo4j.IsConnectivityError(err) {
		return fmt.Errorf("%s: %w: %w", op, apptype.ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
