package postgres

import "fmt"

// createTableSQL returns the DDL for the ledger table. table must already
// be sanitized.
func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    installed_rank   BIGSERIAL PRIMARY KEY,
    version          VARCHAR(50) NOT NULL,
    extension        VARCHAR(20) NOT NULL,
    name             VARCHAR(255) NOT NULL,
    checksum         VARCHAR(64) NOT NULL,
    apply_timestamp  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, table)
}
