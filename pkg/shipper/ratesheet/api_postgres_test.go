package ratesheet_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mobapp/domicilio/pkg/shipper/ratesheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database only when TEST_DATABASE_URL is set.
func TestPostgresAPIClient_Lookup(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	api, err := ratesheet.NewPostgresAPIClient(ctx, dsn)
	require.NoError(t, err)
	defer api.Close()

	require.NoError(t, api.Migrate(ctx))

	table := fmt.Sprintf("TEST %d", time.Now().UnixNano())
	require.NoError(t, api.Insert(ctx, table, []ratesheet.Row{
		{Name: "OCA A DOMICILIO", PostalFrom: "1000", PostalTo: "1999", WeightMax: 1, Cost: 1100},
		{Name: "OCA A DOMICILIO", PostalFrom: "1000", PostalTo: "1999", WeightMax: 5, Cost: 1500},
		{Name: "OCA A DOMICILIO", PostalFrom: "5000", PostalTo: "5999", WeightMax: 5, Cost: 2300},
	}))

	resp, err := api.Lookup(ctx, &ratesheet.LookupRequest{Table: table, WeightKg: 2.0, PostalCode: "1406"})
	require.NoError(t, err)
	assert.Equal(t, []ratesheet.Rate{{Name: "OCA A DOMICILIO", Cost: 1500}}, resp.Rates)

	resp, err = api.Lookup(ctx, &ratesheet.LookupRequest{Table: table, WeightKg: 9, PostalCode: "1406"})
	require.NoError(t, err)
	assert.Empty(t, resp.Rates)
}

func TestRow_Matches(t *testing.T) {
	row := ratesheet.Row{PostalFrom: "1000", PostalTo: "1999", WeightMax: 5}

	assert.True(t, row.Matches(5, "1000"))
	assert.True(t, row.Matches(0.1, "1999"))
	assert.False(t, row.Matches(5.01, "1406"))
	assert.False(t, row.Matches(1, "0999"))
	assert.False(t, row.Matches(1, "2000"))
}
