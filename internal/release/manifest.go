package release

import "sort"

// Manifest is the statically known set of artifact names expected for a tag.
type Manifest struct {
	Tag     Tag
	entries map[Platform]string
}

// NewManifest returns the expected artifacts of tag for the given platforms.
func NewManifest(tag Tag, platforms []Platform) *Manifest {
	m := &Manifest{Tag: tag, entries: make(map[Platform]string, len(platforms))}
	for _, p := range platforms {
		m.entries[p] = ArtifactName(tag, p)
	}
	return m
}

// Name returns the artifact name expected for p.
func (m *Manifest) Name(p Platform) (string, bool) {
	name, ok := m.entries[p]
	return name, ok
}

// Platforms returns the platforms of the manifest in publish order.
func (m *Manifest) Platforms() []Platform {
	var out []Platform
	for _, p := range AllPlatforms() {
		if _, ok := m.entries[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Names returns every expected artifact name, sorted.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.entries))
	for _, n := range m.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of expected artifacts.
func (m *Manifest) Len() int { return len(m.entries) }
