// Package quote prices the options of a checkout against the rate tables.
package quote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mobapp/domicilio/pkg/shipper"
)

// Request is the body the platform posts to the rates endpoint.
type Request struct {
	Origin      *Address    `json:"origin,omitempty"`
	Destination *Address    `json:"destination,omitempty"`
	Items       []Item      `json:"items"`
	Carrier     *CarrierRef `json:"carrier,omitempty"`
}

// Address carries the postal code fields the platform may send.
type Address struct {
	Zipcode    string `json:"zipcode,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Item is a cart line.
type Item struct {
	Grams    float64 `json:"grams"`
	Quantity float64 `json:"quantity"`
}

// CarrierRef lists the carrier options enabled for the store.
type CarrierRef struct {
	Options []Option `json:"options"`
}

// Option is a carrier option as declared by the platform.
type Option struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Code string          `json:"code"`
	Name string          `json:"name"`

	// unnamed is set when the platform sent an option without a string name.
	unnamed bool
}

// UnmarshalJSON decodes an option without failing the whole request when a
// field has the wrong type. An option whose name is not a string is kept but
// marked unnamed so it is never quoted.
func (o *Option) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   json.RawMessage `json:"id"`
		Code json.RawMessage `json:"code"`
		Name json.RawMessage `json:"name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*o = Option{unnamed: true}
		return nil
	}

	*o = Option{ID: raw.ID}
	if bytes.Equal(bytes.TrimSpace(o.ID), []byte("null")) {
		o.ID = nil
	}
	if isJSONString(raw.Code) {
		_ = json.Unmarshal(raw.Code, &o.Code)
	}
	if !isJSONString(raw.Name) || json.Unmarshal(raw.Name, &o.Name) != nil {
		o.Name = ""
		o.unnamed = true
	}
	return nil
}

// Named reports whether the option carried a string name.
func (o Option) Named() bool {
	return !o.unnamed
}

func isJSONString(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '"'
}

// PostalCode returns the destination zipcode, else the destination postal code,
// else the origin postal code.
func (r *Request) PostalCode() string {
	if d := r.Destination; d != nil {
		if d.Zipcode != "" {
			return d.Zipcode
		}
		if d.PostalCode != "" {
			return d.PostalCode
		}
	}
	if r.Origin != nil {
		return r.Origin.PostalCode
	}
	return ""
}

// TotalWeightKg sums grams/1000 × quantity over all items.
func (r *Request) TotalWeightKg() float64 {
	var kg float64
	for _, it := range r.Items {
		kg += (it.Grams / 1000) * it.Quantity
	}
	return kg
}

// Options returns the declared options, or nil.
func (r *Request) Options() []Option {
	if r.Carrier == nil {
		return nil
	}
	return r.Carrier.Options
}

// ParseRequest decodes a rates request. An absent, null or empty-object body
// yields a nil request and no error.
func ParseRequest(body []byte) (*Request, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("decoding rates request: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decoding rates request: %w", err)
	}
	return &req, nil
}

// Rate is a priced option returned to the platform.
type Rate struct {
	ID              json.RawMessage         `json:"id,omitempty"`
	Name            string                  `json:"name"`
	Code            string                  `json:"code"`
	Price           float64                 `json:"price"`
	PriceMerchant   float64                 `json:"price_merchant"`
	Currency        string                  `json:"currency"`
	Type            shipper.FulfillmentType `json:"type"`
	MinDeliveryDate time.Time               `json:"min_delivery_date"`
	MaxDeliveryDate time.Time               `json:"max_delivery_date"`
	PhoneRequired   bool                    `json:"phone_required"`
	Reference       string                  `json:"reference"`
}

// Response is the rates endpoint body. Rates is never null on the wire.
type Response struct {
	Rates []Rate `json:"rates"`
	Error string `json:"error,omitempty"`
}

// InternalErrorMessage marks a response degraded by an internal failure.
const InternalErrorMessage = "Error interno al calcular el envío."

// Empty returns a response with no rates.
func Empty() *Response {
	return &Response{Rates: []Rate{}}
}

// Failed returns an empty response carrying the internal error marker.
func Failed() *Response {
	return &Response{Rates: []Rate{}, Error: InternalErrorMessage}
}
