package sbpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlatform(t *testing.T) {
	validPlatforms := []string{"cgc", "sbg-us", "sbg-eu", "biodata-catalyst", "cavatica"}

	for _, code := range validPlatforms {
		t.Run("valid_"+code, func(t *testing.T) {
			p, err := GetPlatform(code)
			require.NoError(t, err)
			assert.NotEmpty(t, p.Name)
			assert.NotEmpty(t, p.Endpoint)
			assert.Contains(t, p.Endpoint, "https://")
		})
	}

	t.Run("invalid platform returns error", func(t *testing.T) {
		_, err := GetPlatform("aws")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unknown platform")
		assert.Contains(t, err.Error(), "cgc")
	})

	t.Run("empty string returns error", func(t *testing.T) {
		_, err := GetPlatform("")
		assert.Error(t, err)
	})

	t.Run("cgc platform has correct endpoint", func(t *testing.T) {
		p, err := GetPlatform("cgc")
		require.NoError(t, err)
		assert.Equal(t, "Cancer Genomics Cloud", p.Name)
		assert.Equal(t, "https://cgc-api.sbgenomics.com/v2", p.Endpoint)
	})

	t.Run("biodata-catalyst platform has correct endpoint", func(t *testing.T) {
		p, err := GetPlatform("biodata-catalyst")
		require.NoError(t, err)
		assert.Equal(t, "https://api.sb.biodatacatalyst.nhlbi.nih.gov/v2", p.Endpoint)
	})
}

func TestValidPlatforms(t *testing.T) {
	platforms := ValidPlatforms()

	assert.Len(t, platforms, 5)
	assert.Equal(t, []string{"biodata-catalyst", "cavatica", "cgc", "sbg-eu", "sbg-us"}, platforms)

	// Verify sorted
	for i := 1; i < len(platforms); i++ {
		assert.Less(t, platforms[i-1], platforms[i], "platforms should be sorted")
	}
}
