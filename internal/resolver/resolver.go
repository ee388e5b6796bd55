// Package resolver maps free-form geographic text onto the static
// department → province → district hierarchy and reconciles geocoder
// output with user-entered address fields.
//
// Matching is exact equality of normalized forms, always scoped to the
// parent level already resolved. The resolver never returns errors:
// every no-match degrades to "leave unset" or "keep the raw text as the
// address", and the user picks manually from the dropdowns.
package resolver

import (
	"patitas/internal/geodata"
	"patitas/internal/normalize"
)

// Location is the output of a resolution: each hierarchy field is either
// a validated member of the reference data or empty.
type Location struct {
	Department   string `json:"department"`
	Province     string `json:"province"`
	District     string `json:"district"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Address      string `json:"address,omitempty"`
}

// Resolver matches candidate names against the reference hierarchy.
type Resolver struct {
	data *geodata.Index
}

// New creates a Resolver over the given reference dataset.
func New(data *geodata.Index) *Resolver {
	return &Resolver{data: data}
}

// MatchDepartment returns the department whose normalized name equals the
// normalized candidate, or false. Empty candidates never match.
func (r *Resolver) MatchDepartment(candidate string) (geodata.Department, bool) {
	key := normalize.Key(candidate)
	if key == "" {
		return geodata.Department{}, false
	}
	for _, d := range r.data.Departments() {
		if normalize.Key(d.Name) == key {
			return d, true
		}
	}
	return geodata.Department{}, false
}

// MatchProvince searches only within the given department; a candidate
// naming a province of some other department never matches.
func (r *Resolver) MatchProvince(department, candidate string) (geodata.Province, bool) {
	key := normalize.Key(candidate)
	if key == "" {
		return geodata.Province{}, false
	}
	for _, p := range r.data.Provinces(department) {
		if normalize.Key(p.Name) == key {
			return p, true
		}
	}
	return geodata.Province{}, false
}

// MatchDistrict searches only within the given province of the given
// department.
func (r *Resolver) MatchDistrict(department, province, candidate string) (geodata.District, bool) {
	key := normalize.Key(candidate)
	if key == "" {
		return geodata.District{}, false
	}
	for _, d := range r.data.Districts(department, province) {
		if normalize.Key(d.Name) == key {
			return d, true
		}
	}
	return geodata.District{}, false
}

// matchDepartmentAny returns the first candidate that names a department.
func (r *Resolver) matchDepartmentAny(candidates ...string) (geodata.Department, bool) {
	for _, c := range candidates {
		if d, ok := r.MatchDepartment(c); ok {
			return d, true
		}
	}
	return geodata.Department{}, false
}

// matchProvinceAny returns the first candidate that names a province of
// the given department, respecting candidate priority order.
func (r *Resolver) matchProvinceAny(department string, candidates ...string) (geodata.Province, bool) {
	for _, c := range candidates {
		if p, ok := r.MatchProvince(department, c); ok {
			return p, true
		}
	}
	return geodata.Province{}, false
}

// matchDistrictAny returns the first candidate that names a district of
// the given province, respecting candidate priority order.
func (r *Resolver) matchDistrictAny(department, province string, candidates ...string) (geodata.District, bool) {
	for _, c := range candidates {
		if d, ok := r.MatchDistrict(department, province, c); ok {
			return d, true
		}
	}
	return geodata.District{}, false
}
