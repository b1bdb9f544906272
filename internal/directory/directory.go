// Package directory holds the facility reference data and resolves
// free-text location strings to canonical facilities via alias matching.
package directory

import (
	"fmt"
	"strings"

	"icetime/internal/model"
)

// Directory is the read-only facility table, loaded once from
// configuration. Iteration order is declaration order, which the resolver
// depends on.
type Directory struct {
	facilities []model.Facility
	byName     map[string]int
}

// New builds a Directory from the configured facility list. Facility names
// must be unique; aliases are normalized to lower case.
func New(facilities []model.Facility) (*Directory, error) {
	d := &Directory{
		facilities: make([]model.Facility, len(facilities)),
		byName:     make(map[string]int, len(facilities)),
	}
	copy(d.facilities, facilities)

	for i := range d.facilities {
		f := &d.facilities[i]
		if f.Name == "" {
			return nil, fmt.Errorf("directory: facility %d has no name", i)
		}
		if _, dup := d.byName[f.Name]; dup {
			return nil, fmt.Errorf("directory: duplicate facility %q", f.Name)
		}
		d.byName[f.Name] = i
		for j, a := range f.Aliases {
			f.Aliases[j] = strings.ToLower(strings.TrimSpace(a))
		}
	}
	return d, nil
}

// Facilities returns the facility table in declaration order.
func (d *Directory) Facilities() []model.Facility {
	return d.facilities
}

// ByName looks a facility up by its canonical name.
func (d *Directory) ByName(name string) (model.Facility, bool) {
	i, ok := d.byName[name]
	if !ok {
		return model.Facility{}, false
	}
	return d.facilities[i], true
}

// Resolve matches free text against the alias sets of the facilities in
// cityScope. The input is lower-cased and a leading "*" (a cancellation
// marker some sources prepend) is stripped; the first alias, in facility
// then alias declaration order, whose substring appears in the input wins.
// There is no longest-match preference. Returns nil when nothing matches;
// callers apply their source's configured default facility, if any.
func (d *Directory) Resolve(freeText, cityScope string) *model.Facility {
	s := strings.ToLower(strings.TrimSpace(freeText))
	s = strings.TrimSpace(strings.TrimPrefix(s, "*"))
	if s == "" {
		return nil
	}

	for i := range d.facilities {
		f := &d.facilities[i]
		if cityScope != "" && !strings.EqualFold(f.City, cityScope) {
			continue
		}
		for _, alias := range f.Aliases {
			if alias != "" && strings.Contains(s, alias) {
				return f
			}
		}
	}
	return nil
}
