package resolver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/ledger-migrate/internal/migration"
	"github.com/aqasim81/ledger-migrate/internal/resolver"
)

func TestVerify(t *testing.T) {
	t.Parallel()

	edited := applied("V1__a.sql", "V2__b.sql")
	edited[1].Checksum = "0123456789abcdef0123"

	tests := []struct {
		name    string
		local   []migration.Migration
		applied []migration.Migration
		check   func(t *testing.T, drifts []resolver.Drift)
	}{
		{
			name:    "matching files report nothing",
			local:   local("V1__a.sql", "V2__b.sql", "V3__c.sql"),
			applied: applied("V1__a.sql", "V2__b.sql"),
			check: func(t *testing.T, drifts []resolver.Drift) {
				t.Helper()
				assert.Empty(t, drifts)
			},
		},
		{
			name:    "checksum change is reported",
			local:   local("V1__a.sql", "V2__b.sql"),
			applied: edited,
			check: func(t *testing.T, drifts []resolver.Drift) {
				t.Helper()
				require.Len(t, drifts, 1)
				assert.Equal(t, resolver.DriftChecksum, drifts[0].Kind)
				assert.Equal(t, "V2__b.sql", drifts[0].Applied.Name)
				assert.Equal(t, "sum-V2__b.sql", drifts[0].Local.Checksum)
				assert.Contains(t, drifts[0].String(), "recorded 0123456789ab")
			},
		},
		{
			name:    "removed file is reported",
			local:   local("V2__b.sql"),
			applied: applied("V1__a.sql", "V2__b.sql"),
			check: func(t *testing.T, drifts []resolver.Drift) {
				t.Helper()
				require.Len(t, drifts, 1)
				assert.Equal(t, resolver.DriftMissing, drifts[0].Kind)
				assert.Equal(t, "V1__a.sql: applied but no longer present locally", drifts[0].String())
			},
		},
		{
			name:    "ledger order is kept",
			local:   local("V3__c.sql"),
			applied: applied("V2__b.sql", "V1__a.sql"),
			check: func(t *testing.T, drifts []resolver.Drift) {
				t.Helper()
				require.Len(t, drifts, 2)
				assert.Equal(t, "V2__b.sql", drifts[0].Applied.Name)
				assert.Equal(t, "V1__a.sql", drifts[1].Applied.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, resolver.Verify(tt.local, tt.applied))
		})
	}
}
