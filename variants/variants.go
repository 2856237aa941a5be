// Package variants exposes immutable descriptors of the maps games can be
// played on. Descriptors are derived once at init from godip's variant
// registry and shared read-only by every game.
package variants

import (
	"sort"

	"github.com/zond/godip"
	gvariants "github.com/zond/godip/variants"

	"github.com/zond/dipcoord/errs"
)

// ProvinceType classifies a province on the map.
type ProvinceType string

const (
	Land       ProvinceType = "land"
	Sea        ProvinceType = "sea"
	Coastal    ProvinceType = "coastal"
	NamedCoast ProvinceType = "named-coast"
)

// Province describes one province of a variant map.
type Province struct {
	ID           godip.Province
	Type         ProvinceType
	SupplyCenter bool
	// Parent is set for named coasts and points at the super province.
	Parent godip.Province
}

// Variant describes a map: its nations, provinces and victory threshold.
type Variant struct {
	Name      string
	Nations   godip.Nations
	Provinces []Province
	// SoloSupplyCenters is the supply center count a single nation must
	// reach to win alone: a strict majority of all centers on the map.
	SoloSupplyCenters int
}

var catalog = map[string]Variant{}

func init() {
	for name, v := range gvariants.Variants {
		graph := v.Graph()
		provinces := []Province{}
		scCount := 0
		for _, prov := range graph.Provinces() {
			flags := graph.Flags(prov)
			typ := Land
			if prov.Super() != prov {
				typ = NamedCoast
			} else if flags[godip.Sea] && !flags[godip.Land] {
				typ = Sea
			} else if flags[godip.Sea] {
				typ = Coastal
			}
			sc := graph.SC(prov) != nil
			if sc && typ != NamedCoast {
				scCount++
			}
			parent := godip.Province("")
			if typ == NamedCoast {
				parent = prov.Super()
			}
			provinces = append(provinces, Province{
				ID:           prov,
				Type:         typ,
				SupplyCenter: sc,
				Parent:       parent,
			})
		}
		sort.Slice(provinces, func(i, j int) bool {
			return provinces[i].ID < provinces[j].ID
		})
		catalog[name] = Variant{
			Name:              name,
			Nations:           append(godip.Nations{}, v.Nations...),
			Provinces:         provinces,
			SoloSupplyCenters: scCount/2 + 1,
		}
	}
}

// Get looks a variant up by name.
func Get(name string) (Variant, error) {
	v, found := catalog[name]
	if !found {
		return Variant{}, errs.Newf(errs.CodeNotFound, "unknown variant %q", name)
	}
	return v, nil
}

// Names lists the known variant names, sorted.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasNation reports whether nation plays in the variant.
func (v Variant) HasNation(nation godip.Nation) bool {
	for _, nat := range v.Nations {
		if nat == nation {
			return true
		}
	}
	return false
}
