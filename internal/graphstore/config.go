package graphstore

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the graph engine connection settings
type Config struct {
	URI         string
	Username    string
	Password    string
	Database    string
	MaxPoolSize int
}

// NewConfig creates a new Config from environment variables
func NewConfig() *Config {
	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USERNAME")
	if user == "" {
		user = "neo4j"
	}
	cfg := &Config{
		URI:      uri,
		Username: user,
		Password: os.Getenv("NEO4J_PASSWORD"),
		Database: os.Getenv("NEO4J_DATABASE"),
	}
	if v := os.Getenv("NEO4J_MAX_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxPoolSize = n
		}
	}
	return cfg
}

// Validate reports missing required settings. The password has no default
// and must come from the environment.
func (c *Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("NEO4J_URI must not be empty")
	}
	if c.Password == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	return nil
}
