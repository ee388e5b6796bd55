package resolver

import "patitas/internal/geocode"

// FromAddress reconciles a reverse-geocoded address object with the
// reference hierarchy in one synchronous pass: department first, then the
// province list of that department, then the district list of that
// province. Lower levels are only trusted once their parent is confirmed.
func (r *Resolver) FromAddress(a geocode.Address) Location {
	loc := Location{Address: StreetAddress(a)}

	dept, ok := r.matchDepartmentAny(a.State, a.Region)
	if !ok {
		// No department, no hierarchy. Suburb still makes a usable
		// neighborhood hint.
		loc.Neighborhood = firstNonEmpty(a.Neighbourhood, a.Quarter, a.Residential, a.Suburb)
		return loc
	}
	loc.Department = dept.Name

	prov, ok := r.matchProvinceAny(dept.Name, a.Province, a.Region, a.City)
	if !ok {
		loc.Neighborhood = firstNonEmpty(a.Neighbourhood, a.Quarter, a.Residential, a.Suburb)
		return loc
	}
	loc.Province = prov.Name

	dist, ok := r.matchDistrictAny(dept.Name, prov.Name, a.CityDistrict, a.District, a.Town, a.Suburb)
	if ok {
		loc.District = dist.Name
		loc.Neighborhood = firstNonEmpty(a.Neighbourhood, a.Quarter, a.Residential)
	} else {
		// Suburb did not name a district; demote it to a neighborhood.
		// The demoted suburb takes precedence over the generic
		// neighborhood fields.
		loc.Neighborhood = firstNonEmpty(a.Suburb, a.Neighbourhood, a.Quarter, a.Residential)
	}
	return loc
}

// StreetAddress builds display text for the street-level part of an
// address: street name plus house number, or a venue name when there is
// no street-like field at all.
func StreetAddress(a geocode.Address) string {
	street := firstNonEmpty(a.Road, a.Pedestrian, a.Footway, a.Path)
	if street != "" {
		if a.HouseNumber != "" {
			return street + " " + a.HouseNumber
		}
		return street
	}
	return firstNonEmpty(a.Amenity, a.Building, a.Park, a.Leisure)
}

// Apply merges a fresh resolution into previously entered form state.
// Hierarchy fields are replaced whenever the resolution produced a
// department; address and neighborhood are never cleared by an empty
// result, so a geocoder hiccup cannot wipe what the user typed.
func Apply(prev, next Location) Location {
	out := prev
	if next.Department != "" {
		out.Department = next.Department
		out.Province = next.Province
		out.District = next.District
	}
	if next.Neighborhood != "" {
		out.Neighborhood = next.Neighborhood
	}
	if next.Address != "" {
		out.Address = next.Address
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
