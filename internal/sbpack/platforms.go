package sbpack

import (
	"fmt"
	"sort"
	"strings"
)

// Platform holds the identity of one Seven Bridges deployment target
type Platform struct {
	Name     string
	Endpoint string
}

// Platforms maps platform codes to their API endpoints. The codes
// double as sbpack profile names in ~/.sevenbridges/credentials.
var Platforms = map[string]Platform{
	"cgc": {
		Name:     "Cancer Genomics Cloud",
		Endpoint: "https://cgc-api.sbgenomics.com/v2",
	},
	"sbg-us": {
		Name:     "Seven Bridges US",
		Endpoint: "https://api.sbgenomics.com/v2",
	},
	"sbg-eu": {
		Name:     "Seven Bridges EU",
		Endpoint: "https://eu-api.sbgenomics.com/v2",
	},
	"biodata-catalyst": {
		Name:     "BioData Catalyst",
		Endpoint: "https://api.sb.biodatacatalyst.nhlbi.nih.gov/v2",
	},
	"cavatica": {
		Name:     "Cavatica",
		Endpoint: "https://cavatica-api.sbgenomics.com/v2",
	},
}

// GetPlatform returns the configuration for the specified platform
func GetPlatform(name string) (Platform, error) {
	p, ok := Platforms[name]
	if !ok {
		return Platform{}, fmt.Errorf("unknown platform: %s (valid: %s)", name, strings.Join(ValidPlatforms(), ", "))
	}
	return p, nil
}

// ValidPlatforms returns a sorted list of valid platform codes
func ValidPlatforms() []string {
	names := make([]string, 0, len(Platforms))
	for code := range Platforms {
		names = append(names, code)
	}
	sort.Strings(names)
	return names
}
