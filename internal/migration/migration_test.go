package migration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aqasim81/ledger-migrate/internal/migration"
)

func TestComputeChecksum(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, checksum string)
	}{
		{
			name: "produces 64-char hex string",
			data: "CREATE TABLE users (id INT);",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.Len(t, checksum, 64)
				assert.Regexp(t, `^[0-9a-f]{64}$`, checksum)
			},
		},
		{
			name: "deterministic for same input",
			data: "CREATE TABLE users (id INT);",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				again := migration.ComputeChecksum([]byte("CREATE TABLE users (id INT);"))
				assert.Equal(t, checksum, again)
			},
		},
		{
			name: "different content produces different checksum",
			data: "CREATE TABLE users (id INT);",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				other := migration.ComputeChecksum([]byte("CREATE TABLE posts (id INT);"))
				assert.NotEqual(t, checksum, other)
			},
		},
		{
			name: "empty input produces valid checksum",
			data: "",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", checksum)
			},
		},
		{
			name: "whitespace matters",
			data: "SELECT 1",
			check: func(t *testing.T, checksum string) {
				t.Helper()
				withSpace := migration.ComputeChecksum([]byte("SELECT 1 "))
				assert.NotEqual(t, checksum, withSpace)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			checksum := migration.ComputeChecksum([]byte(tt.data))
			tt.check(t, checksum)
		})
	}
}

func TestMigration_Applied(t *testing.T) {
	t.Parallel()

	local := migration.Migration{Version: "1", Name: "V1__init.sql"}
	recorded := migration.Migration{Version: "1", Name: "V1__init.sql", AppliedAt: time.Now()}

	assert.False(t, local.Applied())
	assert.True(t, recorded.Applied())
}
