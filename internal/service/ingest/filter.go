package ingest

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Filter selects the vessels worth publishing.
type Filter struct {
	mmsis     map[int64]struct{}
	countries map[string]struct{}
}

// NewFilter keeps the listed MMSIs and every vessel flagged by one of countries.
func NewFilter(mmsis []int64, countries []string) *Filter {
	f := &Filter{
		mmsis:     make(map[int64]struct{}, len(mmsis)),
		countries: make(map[string]struct{}, len(countries)),
	}

	for _, mmsi := range mmsis {
		f.mmsis[mmsi] = struct{}{}
	}

	for _, country := range countries {
		f.countries[strings.ToUpper(strings.TrimSpace(country))] = struct{}{}
	}

	return f
}

// Keep reports whether the vessel passes the filter.
func (f *Filter) Keep(mmsi int64, countryCode string) bool {
	if _, ok := f.mmsis[mmsi]; ok {
		return true
	}

	_, ok := f.countries[strings.ToUpper(countryCode)]

	return ok
}

// LoadShadowFleet reads a JSON array of MMSIs. An empty path yields no MMSIs.
func LoadShadowFleet(path string) ([]int64, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shadow fleet: %w", err)
	}

	var mmsis []int64
	if err := json.Unmarshal(data, &mmsis); err != nil {
		return nil, fmt.Errorf("decode shadow fleet: %w", err)
	}

	return mmsis, nil
}
