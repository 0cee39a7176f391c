package vectorindex

import "fmt"

// dynamicSchema returns schema DDL using the configured embedding dimension
func dynamicSchema(embeddingDims int) []string {
	if embeddingDims <= 0 {
		embeddingDims = 384
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS vectors (
        namespace TEXT NOT NULL,
        id TEXT NOT NULL,
        content TEXT NOT NULL DEFAULT '',
        embedding F32_BLOB(%d) NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (namespace, id)
    )`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_vectors_namespace ON vectors(namespace)`,
		`CREATE INDEX IF NOT EXISTS idx_vectors_updated_at ON vectors(updated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_vectors_embedding ON vectors(libsql_vector_idx(embedding))`,
	}
}
