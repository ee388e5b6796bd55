package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patitas/internal/geocode"
	"patitas/internal/geodata"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	data, err := geodata.Load()
	require.NoError(t, err)
	return New(data)
}

func TestMatchDepartment(t *testing.T) {
	r := newTestResolver(t)

	d, ok := r.MatchDepartment("Lima")
	require.True(t, ok)
	assert.Equal(t, "Lima", d.Name)

	// Geocoder spelling variants.
	d, ok = r.MatchDepartment("Provincia de Lima")
	require.True(t, ok)
	assert.Equal(t, "Lima", d.Name)

	d, ok = r.MatchDepartment("JUNÍN")
	require.True(t, ok)
	assert.Equal(t, "Junín", d.Name)

	_, ok = r.MatchDepartment("")
	assert.False(t, ok)

	_, ok = r.MatchDepartment("Narnia")
	assert.False(t, ok)
}

func TestMatchProvinceScoping(t *testing.T) {
	r := newTestResolver(t)

	p, ok := r.MatchProvince("Lima", "Lima")
	require.True(t, ok)
	assert.Equal(t, "Lima", p.Name)

	// Trujillo is a province of La Libertad, not of Lima.
	_, ok = r.MatchProvince("Lima", "Trujillo")
	assert.False(t, ok)

	p, ok = r.MatchProvince("La Libertad", "Trujillo")
	require.True(t, ok)
	assert.Equal(t, "Trujillo", p.Name)
}

func TestMatchDistrictScoping(t *testing.T) {
	r := newTestResolver(t)

	// Miraflores exists both in Lima/Lima and in Arequipa/Arequipa;
	// scoping keeps them apart.
	d, ok := r.MatchDistrict("Lima", "Lima", "Miraflores")
	require.True(t, ok)
	assert.Equal(t, "Miraflores", d.Name)

	d, ok = r.MatchDistrict("Arequipa", "Arequipa", "Miraflores")
	require.True(t, ok)
	assert.Equal(t, "Miraflores", d.Name)

	// Wanchaq is in Cusco province only.
	_, ok = r.MatchDistrict("Lima", "Lima", "Wanchaq")
	assert.False(t, ok)

	_, ok = r.MatchDistrict("Lima", "Cañete", "Miraflores")
	assert.False(t, ok)
}

func TestFromAddressFullHierarchy(t *testing.T) {
	r := newTestResolver(t)

	loc := r.FromAddress(geocode.Address{
		Road:          "Avenida Larco",
		HouseNumber:   "123",
		Neighbourhood: "Armendáriz",
		CityDistrict:  "Miraflores",
		Province:      "Provincia de Lima",
		State:         "Lima",
		Country:       "Perú",
	})

	assert.Equal(t, "Lima", loc.Department)
	assert.Equal(t, "Lima", loc.Province)
	assert.Equal(t, "Miraflores", loc.District)
	assert.Equal(t, "Armendáriz", loc.Neighborhood)
	assert.Equal(t, "Avenida Larco 123", loc.Address)
}

func TestFromAddressSuburbDemotion(t *testing.T) {
	r := newTestResolver(t)

	// Suburb names a real district of Cusco province.
	loc := r.FromAddress(geocode.Address{
		Suburb: "Wanchaq",
		City:   "Cusco",
		State:  "Cusco",
	})
	assert.Equal(t, "Cusco", loc.Department)
	assert.Equal(t, "Cusco", loc.Province)
	assert.Equal(t, "Wanchaq", loc.District)
	assert.Empty(t, loc.Neighborhood)

	// Suburb that is not a district falls through to the neighborhood.
	loc = r.FromAddress(geocode.Address{
		Suburb: "Vista Alegre",
		City:   "Cusco",
		State:  "Cusco",
	})
	assert.Equal(t, "Cusco", loc.Department)
	assert.Equal(t, "Cusco", loc.Province)
	assert.Empty(t, loc.District)
	assert.Equal(t, "Vista Alegre", loc.Neighborhood)

	// The demoted suburb outranks the generic neighborhood fields.
	loc = r.FromAddress(geocode.Address{
		Suburb:        "Vista Alegre",
		Neighbourhood: "Barrio San Blas",
		City:          "Cusco",
		State:         "Cusco",
	})
	assert.Empty(t, loc.District)
	assert.Equal(t, "Vista Alegre", loc.Neighborhood)

	// When the suburb did name a district it is consumed by the match
	// and the neighborhood comes from the generic fields.
	loc = r.FromAddress(geocode.Address{
		Suburb:        "Wanchaq",
		Neighbourhood: "Barrio Progreso",
		City:          "Cusco",
		State:         "Cusco",
	})
	assert.Equal(t, "Wanchaq", loc.District)
	assert.Equal(t, "Barrio Progreso", loc.Neighborhood)
}

func TestFromAddressInlandRegions(t *testing.T) {
	r := newTestResolver(t)

	// Resolution must reach district depth outside the coastal metros too.
	loc := r.FromAddress(geocode.Address{
		Road:         "Calle Real",
		CityDistrict: "El Tambo",
		City:         "Huancayo",
		State:        "Junín",
	})
	assert.Equal(t, "Junín", loc.Department)
	assert.Equal(t, "Huancayo", loc.Province)
	assert.Equal(t, "El Tambo", loc.District)

	loc = r.FromAddress(geocode.Address{
		Town:  "Juliaca",
		City:  "San Román",
		State: "Puno",
	})
	assert.Equal(t, "Puno", loc.Department)
	assert.Equal(t, "San Román", loc.Province)
	assert.Equal(t, "Juliaca", loc.District)
}

func TestFromAddressNoProvinceCandidates(t *testing.T) {
	r := newTestResolver(t)

	// Only state and suburb arrive: without a province candidate the walk
	// stops at the department and the suburb becomes a neighborhood hint.
	loc := r.FromAddress(geocode.Address{
		State:  "Cusco",
		Suburb: "Wanchaq",
	})
	assert.Equal(t, "Cusco", loc.Department)
	assert.Empty(t, loc.Province)
	assert.Empty(t, loc.District)
	assert.Equal(t, "Wanchaq", loc.Neighborhood)
}

func TestFromAddressNoDepartment(t *testing.T) {
	r := newTestResolver(t)

	// Foreign or unrecognizable result: nothing below department is trusted.
	loc := r.FromAddress(geocode.Address{
		Road:         "Calle Falsa",
		CityDistrict: "Miraflores",
		State:        "Antofagasta",
	})
	assert.Empty(t, loc.Department)
	assert.Empty(t, loc.Province)
	assert.Empty(t, loc.District)
	assert.Equal(t, "Calle Falsa", loc.Address)
}

func TestStreetAddress(t *testing.T) {
	assert.Equal(t, "Avenida Arequipa 2450", StreetAddress(geocode.Address{
		Road: "Avenida Arequipa", HouseNumber: "2450",
	}))
	assert.Equal(t, "Malecón Cisneros", StreetAddress(geocode.Address{
		Pedestrian: "Malecón Cisneros",
	}))
	// Venue name when there is no street at all.
	assert.Equal(t, "Parque Kennedy", StreetAddress(geocode.Address{
		Park: "Parque Kennedy",
	}))
	assert.Empty(t, StreetAddress(geocode.Address{}))
}

func TestApply(t *testing.T) {
	prev := Location{
		Department:   "Lima",
		Province:     "Lima",
		District:     "Surquillo",
		Neighborhood: "Barrio Médico",
		Address:      "Calle Alberto Alexander 100",
	}

	// A resolution without a department leaves the hierarchy alone.
	out := Apply(prev, Location{Address: "Avenida Aviación 500"})
	assert.Equal(t, "Surquillo", out.District)
	assert.Equal(t, "Avenida Aviación 500", out.Address)
	assert.Equal(t, "Barrio Médico", out.Neighborhood)

	// A full resolution replaces the hierarchy wholesale.
	out = Apply(prev, Location{Department: "Cusco", Province: "Cusco", District: "Wanchaq"})
	assert.Equal(t, "Cusco", out.Department)
	assert.Equal(t, "Cusco", out.Province)
	assert.Equal(t, "Wanchaq", out.District)
	// But never clears what the user typed.
	assert.Equal(t, "Calle Alberto Alexander 100", out.Address)

	// A department with no district still clears the stale district.
	out = Apply(prev, Location{Department: "Piura", Province: "Piura"})
	assert.Equal(t, "Piura", out.Department)
	assert.Empty(t, out.District)
}
