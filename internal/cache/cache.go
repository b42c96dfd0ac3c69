package cache

// Fixed section names. Sections are created once at startup and live for
// the process lifetime; there is no dynamic creation or deletion.
const (
	SectionStats  = "stats"
	SectionNasdaq = "nasdaq-top50"
	SectionBSE    = "bse-top50"
)

// Cache is an immutable set of named sections. Each section has its own
// lock; no operation ever holds two section locks at once.
type Cache struct {
	sections map[string]*Section
}

func New(names ...string) *Cache {
	c := &Cache{sections: make(map[string]*Section, len(names))}
	for _, n := range names {
		c.sections[n] = NewSection()
	}
	return c
}

// Default builds the cache with the three sections the server refreshes.
func Default() *Cache {
	return New(SectionStats, SectionNasdaq, SectionBSE)
}

// Section returns the named section, or nil if it was not configured.
func (c *Cache) Section(name string) *Section {
	return c.sections[name]
}
