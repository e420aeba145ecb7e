package ratesheet_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mobapp/domicilio/pkg/shipper/ratesheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	doc, err := ratesheet.LoadDocument(path)
	require.NoError(t, err)
	assert.Len(t, doc.Tables["OCA DOM"], 3)

	api, err := ratesheet.NewFileAPIClient(path)
	require.NoError(t, err)
	resp, err := api.Lookup(context.Background(), &ratesheet.LookupRequest{Table: "OCA DOM", WeightKg: 2, PostalCode: "1406"})
	require.NoError(t, err)
	assert.Equal(t, []ratesheet.Rate{{Name: "OCA A DOMICILIO", Cost: 1500}}, resp.Rates)
}

func TestLoadDocument_Errors(t *testing.T) {
	_, err := ratesheet.LoadDocument(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: [unclosed"), 0o600))
	_, err = ratesheet.LoadDocument(path)
	assert.Error(t, err)
}
