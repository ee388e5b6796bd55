package geodata

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed ubigeo.json
var ubigeoJSON []byte

// District is the lowest administrative level.
type District struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// Province groups districts within a department.
type Province struct {
	Name      string     `json:"name"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Districts []District `json:"districts"`
}

// Department is the top administrative level.
type Department struct {
	Name      string     `json:"name"`
	Lat       float64    `json:"lat"`
	Lng       float64    `json:"lng"`
	Provinces []Province `json:"provinces"`
}

// Index holds the administrative hierarchy. Loaded once, never mutated.
type Index struct {
	departments []Department
}

type dataset struct {
	Departments []Department `json:"departments"`
}

// Load parses the embedded reference dataset.
func Load() (*Index, error) {
	var ds dataset
	if err := json.Unmarshal(ubigeoJSON, &ds); err != nil {
		return nil, fmt.Errorf("parse ubigeo dataset: %w", err)
	}
	return &Index{departments: ds.Departments}, nil
}

// MustLoad is Load for program start, where a broken embedded dataset is fatal.
func MustLoad() *Index {
	ix, err := Load()
	if err != nil {
		panic(err)
	}
	return ix
}

// Departments returns all departments.
func (ix *Index) Departments() []Department {
	return ix.departments
}

// Provinces returns the provinces of the named department, or nil if the
// department is unknown. The name must match exactly (callers that need
// fuzzy matching go through the resolver).
func (ix *Index) Provinces(department string) []Province {
	for i := range ix.departments {
		if ix.departments[i].Name == department {
			return ix.departments[i].Provinces
		}
	}
	return nil
}

// Districts returns the districts of the named province within the named
// department, or nil if either is unknown.
func (ix *Index) Districts(department, province string) []District {
	for _, p := range ix.Provinces(department) {
		if p.Name == province {
			return p.Districts
		}
	}
	return nil
}

// Centroid returns default map-centering coordinates for the given
// department and optional province. Falls back from province to department.
func (ix *Index) Centroid(department, province string) (lat, lng float64, ok bool) {
	for i := range ix.departments {
		d := &ix.departments[i]
		if d.Name != department {
			continue
		}
		if province != "" {
			for _, p := range d.Provinces {
				if p.Name == province {
					return p.Lat, p.Lng, true
				}
			}
		}
		return d.Lat, d.Lng, true
	}
	return 0, 0, false
}
