package config

// PlantConfig describes the production topology: a fixed ordered set
// of areas, each with a fixed list of asset names, plus the plant-local
// time zone used for report dates and schedule boundaries.
type PlantConfig struct {
	Timezone string       `yaml:"timezone"`
	Areas    []AreaConfig `yaml:"areas"`
}

// AreaConfig is one production stage.
type AreaConfig struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	AssetNames []string `yaml:"asset_names"`
}

// Area returns the area with the given id.
func (p *PlantConfig) Area(id string) (AreaConfig, bool) {
	for _, a := range p.Areas {
		if a.ID == id {
			return a, true
		}
	}
	return AreaConfig{}, false
}

// OrderedAreas returns the areas reordered by the given preference.
// Unknown ids in the preference are ignored; areas missing from the
// preference are appended at the end in default order.
func (p *PlantConfig) OrderedAreas(preference []string) []AreaConfig {
	if len(preference) == 0 {
		return p.Areas
	}

	ordered := make([]AreaConfig, 0, len(p.Areas))
	seen := make(map[string]bool, len(p.Areas))
	for _, id := range preference {
		if area, ok := p.Area(id); ok && !seen[id] {
			ordered = append(ordered, area)
			seen[id] = true
		}
	}
	for _, area := range p.Areas {
		if !seen[area.ID] {
			ordered = append(ordered, area)
		}
	}
	return ordered
}
