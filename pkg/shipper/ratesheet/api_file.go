package ratesheet

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a rate table file:
//
//	tables:
//	  OCA DOM:
//	    - name: OCA A DOMICILIO
//	      postal_from: "1000"
//	      postal_to: "1999"
//	      weight_max: 5
//	      cost: 1500
type Document struct {
	Tables map[string][]Row `yaml:"tables"`
}

// FileAPIClient serves rate tables loaded from a YAML document.
type FileAPIClient struct {
	tables map[string][]Row
}

// LoadDocument reads and parses the YAML document at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rate file: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses a YAML rate document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing rate file: %w", err)
	}
	return &doc, nil
}

// NewFileAPIClient loads the YAML document at path.
func NewFileAPIClient(path string) (*FileAPIClient, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return NewStaticAPIClient(doc.Tables), nil
}

// NewStaticAPIClient serves the given tables from memory.
func NewStaticAPIClient(tables map[string][]Row) *FileAPIClient {
	if tables == nil {
		tables = map[string][]Row{}
	}
	return &FileAPIClient{tables: tables}
}

// Lookup returns, per service name, the smallest weight bracket covering the request,
// in table order of first appearance.
func (c *FileAPIClient) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	rows, ok := c.tables[req.Table]
	if !ok {
		return nil, &APIError{Code: codeTableNotFound, Message: req.Table}
	}

	return &LookupResponse{Table: req.Table, Rates: selectRates(rows, req.WeightKg, req.PostalCode)}, nil
}

// Close is a no-op for the file client.
func (c *FileAPIClient) Close() error {
	return nil
}

func selectRates(rows []Row, weightKg float64, postalCode string) []Rate {
	type pick struct {
		row   Row
		order int
	}
	best := make(map[string]pick)
	for i, r := range rows {
		if !r.Matches(weightKg, postalCode) {
			continue
		}
		cur, seen := best[r.Name]
		switch {
		case !seen:
			best[r.Name] = pick{row: r, order: i}
		case r.WeightMax < cur.row.WeightMax:
			best[r.Name] = pick{row: r, order: cur.order}
		}
	}

	picks := make([]pick, 0, len(best))
	for _, p := range best {
		picks = append(picks, p)
	}
	sort.Slice(picks, func(i, j int) bool { return picks[i].order < picks[j].order })

	rates := make([]Rate, len(picks))
	for i, p := range picks {
		rates[i] = Rate{Name: p.row.Name, Cost: p.row.Cost}
	}
	return rates
}

var _ APIClient = (*FileAPIClient)(nil)
