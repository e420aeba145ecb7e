package quote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_Empty(t *testing.T) {
	for _, body := range []string{"", "   ", "null", "{}", " { } "} {
		req, err := ParseRequest([]byte(body))
		require.NoError(t, err, body)
		assert.Nil(t, req, body)
	}
}

func TestParseRequest_Invalid(t *testing.T) {
	_, err := ParseRequest([]byte(`{"items": `))
	assert.Error(t, err)

	_, err = ParseRequest([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestParseRequest_PlatformPayload(t *testing.T) {
	body := `{
		"store_id": 123456,
		"currency": "ARS",
		"origin": {"postal_code": "1000"},
		"destination": {"postal_code": "1406", "city": "CABA"},
		"items": [
			{"name": "Remera", "grams": 250, "quantity": 2, "price": "1000.00"},
			{"name": "Pantalón", "grams": 500, "quantity": 1}
		],
		"carrier": {"id": 42, "options": [
			{"id": 7001, "code": "OCA_DOM", "name": "OCA A DOMICILIO"}
		]}
	}`

	req, err := ParseRequest([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, "1406", req.PostalCode())
	assert.InDelta(t, 1.0, req.TotalWeightKg(), 1e-9)
	require.Len(t, req.Options(), 1)
	assert.Equal(t, "OCA A DOMICILIO", req.Options()[0].Name)
	assert.Equal(t, json.RawMessage("7001"), req.Options()[0].ID)
}

func TestParseRequest_OptionWithoutStringName(t *testing.T) {
	body := `{
		"destination": {"postal_code": "1406"},
		"items": [{"grams": 2000, "quantity": 1}],
		"carrier": {"options": [
			{"id": 1, "code": "X", "name": 7},
			{"id": 2, "code": "Y"},
			{"id": 3, "code": 99, "name": "OCA A DOMICILIO"},
			null
		]}
	}`

	req, err := ParseRequest([]byte(body))
	require.NoError(t, err)
	require.Len(t, req.Options(), 4)

	opts := req.Options()
	assert.False(t, opts[0].Named())
	assert.Empty(t, opts[0].Name)
	assert.False(t, opts[1].Named())
	assert.True(t, opts[2].Named())
	assert.Equal(t, "OCA A DOMICILIO", opts[2].Name)
	assert.Empty(t, opts[2].Code)
	assert.Equal(t, json.RawMessage("3"), opts[2].ID)
	assert.False(t, opts[3].Named())
}

func TestRequest_PostalCodePriority(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "zipcode first",
			req:  Request{Destination: &Address{Zipcode: "1406", PostalCode: "2000"}, Origin: &Address{PostalCode: "3000"}},
			want: "1406",
		},
		{
			name: "destination postal code",
			req:  Request{Destination: &Address{PostalCode: "2000"}, Origin: &Address{PostalCode: "3000"}},
			want: "2000",
		},
		{
			name: "origin fallback",
			req:  Request{Destination: &Address{}, Origin: &Address{PostalCode: "3000"}},
			want: "3000",
		},
		{
			name: "none",
			req:  Request{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.PostalCode())
		})
	}
}

func TestRequest_TotalWeightKg(t *testing.T) {
	req := Request{Items: []Item{{Grams: 1000, Quantity: 2}, {Grams: 150, Quantity: 3}}}
	assert.InDelta(t, 2.45, req.TotalWeightKg(), 1e-9)

	assert.Zero(t, (&Request{}).TotalWeightKg())
}

func TestResponse_EmptyEncodesArray(t *testing.T) {
	raw, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"rates": []}`, string(raw))

	raw, err = json.Marshal(Failed())
	require.NoError(t, err)
	assert.JSONEq(t, `{"rates": [], "error": "Error interno al calcular el envío."}`, string(raw))
}
