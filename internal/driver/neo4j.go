package driver

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jDriver runs read queries against a Neo4j database through the bolt
// or neo4j scheme.
type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewNeo4jDriver creates the driver without contacting the server, so the
// process can start while the graph is down. Call VerifyConnectivity to
// check reachability.
func NewNeo4jDriver(uri, username, password, database string) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jDriver{Driver: driver, Database: database}, nil
}

func (d *Neo4jDriver) VerifyConnectivity(ctx context.Context) error {
	return d.Driver.VerifyConnectivity(ctx)
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if d.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.Database))
	}

	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}
