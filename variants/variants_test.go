package variants

import (
	"testing"

	"github.com/zond/godip"
)

func TestGetUnknown(t *testing.T) {
	if _, err := Get("Atlantis"); err == nil {
		t.Fatal("expected error for unknown variant")
	}
}

func TestClassicalDescriptor(t *testing.T) {
	v, err := Get("Classical")
	if err != nil {
		t.Fatalf("Get(Classical): %v", err)
	}
	if len(v.Nations) != 7 {
		t.Errorf("got %d nations, want 7", len(v.Nations))
	}
	if !v.HasNation(godip.France) {
		t.Error("expected France to play in Classical")
	}
	if v.HasNation("Atlantis") {
		t.Error("did not expect Atlantis to play in Classical")
	}
	// 34 supply centers on the classical map, majority is 18.
	if v.SoloSupplyCenters != 18 {
		t.Errorf("got solo threshold %d, want 18", v.SoloSupplyCenters)
	}
}

func TestClassicalProvinces(t *testing.T) {
	v, err := Get("Classical")
	if err != nil {
		t.Fatalf("Get(Classical): %v", err)
	}
	byID := map[godip.Province]Province{}
	for _, prov := range v.Provinces {
		byID[prov.ID] = prov
	}

	if got := byID["nth"]; got.Type != Sea || got.SupplyCenter {
		t.Errorf("nth = %+v, want non-SC sea province", got)
	}
	if got := byID["lon"]; got.Type != Coastal || !got.SupplyCenter {
		t.Errorf("lon = %+v, want coastal supply center", got)
	}
	if got := byID["stp/sc"]; got.Type != NamedCoast || got.Parent != "stp" {
		t.Errorf("stp/sc = %+v, want named coast with parent stp", got)
	}
}

func TestNamesIncludesClassical(t *testing.T) {
	found := false
	for _, name := range Names() {
		if name == "Classical" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, missing Classical", Names())
	}
}
