package resolver

import (
	"strings"
	"unicode"

	"patitas/internal/normalize"
)

// Composite serializes a resolved location into the persisted form:
// comma-joined [address, neighborhood, district, province, department]
// with empty segments filtered out. This string is the `location` field
// stored on pet reports and campaigns.
func Composite(loc Location) string {
	segs := make([]string, 0, 5)
	for _, s := range []string{loc.Address, loc.Neighborhood, loc.District, loc.Province, loc.Department} {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	return strings.Join(segs, ", ")
}

// ParseComposite recovers a Location from its persisted form (edit mode).
// The hierarchy is walked backward from the last segment: department
// first, each lower level gated on its parent matching. When a level
// fails to match at the expected position, one alternate position
// further back is tried before giving up; everything left of the last
// matched level becomes the address (and, when two or more leading
// segments remain, the segment adjacent to the district is taken as the
// neighborhood). A string whose last segment is not a department is
// preserved whole as the address.
//
// The 4-segment form is ambiguous between "address, district, province,
// department" and "neighborhood, district, province, department"; a
// street-text heuristic decides (see looksLikeStreet).
func (r *Resolver) ParseComposite(s string) Location {
	var segs []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			segs = append(segs, part)
		}
	}
	if len(segs) == 0 {
		return Location{}
	}

	dept, ok := r.MatchDepartment(segs[len(segs)-1])
	if !ok {
		return Location{Address: strings.Join(segs, ", ")}
	}
	loc := Location{Department: dept.Name}

	provIdx, prov := r.matchBackward(segs, len(segs)-2, func(c string) (string, bool) {
		p, ok := r.MatchProvince(dept.Name, c)
		return p.Name, ok
	})
	if provIdx < 0 {
		loc.Address = strings.Join(segs[:len(segs)-1], ", ")
		return loc
	}
	loc.Province = prov

	distIdx, dist := r.matchBackward(segs, provIdx-1, func(c string) (string, bool) {
		d, ok := r.MatchDistrict(dept.Name, prov, c)
		return d.Name, ok
	})
	if distIdx < 0 {
		loc.Address = strings.Join(segs[:provIdx], ", ")
		return loc
	}
	loc.District = dist

	remaining := segs[:distIdx]
	switch len(remaining) {
	case 0:
	case 1:
		if looksLikeStreet(remaining[0]) {
			loc.Address = remaining[0]
		} else {
			loc.Neighborhood = remaining[0]
		}
	default:
		// Full 5-segment form (or an address that itself contained
		// commas): the segment next to the district is the neighborhood.
		loc.Neighborhood = remaining[len(remaining)-1]
		loc.Address = strings.Join(remaining[:len(remaining)-1], ", ")
	}
	return loc
}

// matchBackward tries match at segs[pos], then one position further back.
// Returns the matched index or -1.
func (r *Resolver) matchBackward(segs []string, pos int, match func(string) (string, bool)) (int, string) {
	for _, i := range []int{pos, pos - 1} {
		if i < 0 || i >= len(segs) {
			continue
		}
		if name, ok := match(segs[i]); ok {
			return i, name
		}
	}
	return -1, ""
}

// Street-type keywords common in Peruvian addresses.
var streetKeywords = map[string]bool{
	"av":           true,
	"avenida":      true,
	"jr":           true,
	"jiron":        true,
	"ca":           true,
	"calle":        true,
	"psje":         true,
	"pasaje":       true,
	"mz":           true,
	"manzana":      true,
	"urb":          true,
	"urbanizacion": true,
	"prolongacion": true,
	"carretera":    true,
	"malecon":      true,
	"kilometro":    true,
	"km":           true,
}

// looksLikeStreet guesses whether a lone leading segment is street text
// rather than a neighborhood name: digits or a street-type keyword mark
// it as an address.
func looksLikeStreet(segment string) bool {
	for _, r := range segment {
		if unicode.IsDigit(r) {
			return true
		}
	}
	for _, tok := range strings.Fields(normalize.Key(segment)) {
		if streetKeywords[strings.TrimSuffix(tok, ".")] {
			return true
		}
	}
	return false
}
