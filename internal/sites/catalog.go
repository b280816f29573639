package sites

import (
	"sync/atomic"
)

// Catalog is a concurrency-safe, read-mostly view of the configured sites
// and options. Writers replace the whole snapshot.
type Catalog struct {
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	sites   []Site
	options Options
}

// NewCatalog creates a Catalog from a raw site list. The list is sanitized.
func NewCatalog(list []Site, opts Options) *Catalog {
	c := &Catalog{}
	c.snap.Store(&snapshot{
		sites:   Sanitize(list),
		options: SanitizeOptions(opts),
	})
	return c
}

// Replace swaps the site list, keeping the current options.
func (c *Catalog) Replace(list []Site) {
	cur := c.snap.Load()
	c.snap.Store(&snapshot{
		sites:   Sanitize(list),
		options: cur.options,
	})
}

// Options returns the global widget options.
func (c *Catalog) Options() Options {
	return c.snap.Load().options
}

// Sites returns a copy of all sites in configured order.
func (c *Catalog) Sites() []Site {
	cur := c.snap.Load().sites
	out := make([]Site, len(cur))
	copy(out, cur)
	return out
}

// Site returns the site with the given code.
func (c *Catalog) Site(code string) (Site, error) {
	for _, s := range c.snap.Load().sites {
		if s.Code == code {
			return s, nil
		}
	}
	return Site{}, ErrNotFound
}

// Primary returns the site flagged primary, or the first site when none is.
func (c *Catalog) Primary() (Site, error) {
	list := c.snap.Load().sites
	for _, s := range list {
		if s.IsPrimary {
			return s, nil
		}
	}
	if len(list) > 0 {
		return list[0], nil
	}
	return Site{}, ErrNotFound
}

// Lookup resolves a site by code, or the primary site when code is empty.
func (c *Catalog) Lookup(code string) (Site, error) {
	if code == "" {
		return c.Primary()
	}
	return c.Site(code)
}

// Fallbacks returns the fallback-eligible sites other than exclude, in
// configured order. It returns nil when fallback is disabled.
func (c *Catalog) Fallbacks(exclude string) []Site {
	cur := c.snap.Load()
	if !cur.options.EnableFallback {
		return nil
	}

	var out []Site
	for _, s := range cur.sites {
		if s.Code == exclude || !s.ShowAsFallback {
			continue
		}
		out = append(out, s)
	}
	return out
}
