package geodata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ix, err := Load()
	require.NoError(t, err)

	deps := ix.Departments()
	assert.Len(t, deps, 25)

	seen := map[string]bool{}
	for _, d := range deps {
		assert.NotEmpty(t, d.Name)
		assert.False(t, seen[d.Name], "duplicate department %s", d.Name)
		seen[d.Name] = true

		// Every department has map-centering coordinates within Peru's
		// bounding box.
		assert.InDelta(t, -9.5, d.Lat, 9.0, "%s latitude", d.Name)
		assert.InDelta(t, -75.0, d.Lng, 7.0, "%s longitude", d.Name)

		// Every department must be usable for manual dropdown selection:
		// at least one province, and every province at least one district.
		assert.NotEmpty(t, d.Provinces, "%s has no provinces", d.Name)
		for _, p := range d.Provinces {
			assert.NotEmpty(t, p.Districts, "%s/%s has no districts", d.Name, p.Name)
		}
	}
}

func TestNationwideProvinceCounts(t *testing.T) {
	ix, err := Load()
	require.NoError(t, err)

	total := 0
	for _, d := range ix.Departments() {
		total += len(d.Provinces)
	}
	assert.Equal(t, 196, total, "national province count")

	// Spot-check departments across the country, not just the coast.
	assert.Len(t, ix.Provinces("Amazonas"), 7)
	assert.Len(t, ix.Provinces("Áncash"), 20)
	assert.Len(t, ix.Provinces("Puno"), 13)
	assert.Len(t, ix.Provinces("La Libertad"), 12)
	assert.Len(t, ix.Provinces("Piura"), 8)
}

func TestProvincesAndDistricts(t *testing.T) {
	ix, err := Load()
	require.NoError(t, err)

	provinces := ix.Provinces("Lima")
	require.NotEmpty(t, provinces)
	assert.Equal(t, "Lima", provinces[0].Name)

	districts := ix.Districts("Lima", "Lima")
	names := make([]string, 0, len(districts))
	for _, d := range districts {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "Miraflores")
	assert.Contains(t, names, "Surquillo")

	// Lookups are exact-name; unknown keys return nil, not an error.
	assert.Nil(t, ix.Provinces("lima"))
	assert.Nil(t, ix.Provinces("Atlantis"))
	assert.Nil(t, ix.Districts("Lima", "Trujillo"))
}

func TestCentroid(t *testing.T) {
	ix, err := Load()
	require.NoError(t, err)

	lat, lng, ok := ix.Centroid("Cusco", "Cusco")
	require.True(t, ok)
	assert.NotZero(t, lat)
	assert.NotZero(t, lng)

	// Unknown province falls back to the department centroid.
	dlat, dlng, ok := ix.Centroid("Cusco", "")
	require.True(t, ok)
	flat, flng, ok := ix.Centroid("Cusco", "Shangri-La")
	require.True(t, ok)
	assert.Equal(t, dlat, flat)
	assert.Equal(t, dlng, flng)

	_, _, ok = ix.Centroid("Atlantis", "")
	assert.False(t, ok)
}
