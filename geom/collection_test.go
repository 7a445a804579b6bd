package geom

import (
	"testing"
)

func TestNewCollectionValidation(t *testing.T) {
	tor := torSquare(t, 1, nil)
	if _, err := NewCollection(); err == nil {
		t.Errorf("Accepted an empty collection.")
	}

	dup, err := NewStructure(tor.Name(), tor.Kind(), Tor, unitSquare(t, 2, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCollection(tor, dup); err == nil {
		t.Errorf("Accepted duplicate (kind, name) pairs.")
	}

	lin := linSquare(t, [][2]float64{{-1, 1}})
	if _, err := NewCollection(tor, lin); err == nil {
		t.Errorf("Accepted mixed sweep types.")
	}
}

func TestCollectionReference(t *testing.T) {
	plasma := torSquare(t, 1, nil)
	wall, err := NewStructure("wall", Vessel, Tor, unitSquare(t, 2, 0), nil)
	if err != nil {
		t.Fatal(err)
	}

	c, err := NewCollection(wall)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reference(); err == nil {
		t.Errorf("Reference succeeded without a PlasmaDomain member.")
	}

	if err := c.Add(plasma); err != nil {
		t.Fatal(err)
	}
	ref, err := c.Reference()
	if err != nil {
		t.Fatal(err)
	}
	if ref != plasma {
		t.Errorf("Reference returned %q, want %q.", ref.Name(), plasma.Name())
	}

	second, err := NewStructure("plasma2", PlasmaDomain, Tor, unitSquare(t, 3, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Add(second); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Reference(); err == nil {
		t.Errorf("Reference succeeded with two PlasmaDomain members.")
	}
}

func TestCollectionObstructions(t *testing.T) {
	plasma := torSquare(t, 1, nil)
	wall, err := NewStructure("wall", Vessel, Tor, unitSquare(t, 2, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	coil, err := NewStructure("coil", ActiveCoil, Tor, unitSquare(t, 3, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCollection(plasma, wall, coil)
	if err != nil {
		t.Fatal(err)
	}

	obs := c.Obstructions()
	if len(obs) != 2 || obs[0] != wall || obs[1] != coil {
		t.Fatalf("Obstructions = %v, want [wall coil] in insertion order.", names(obs))
	}
	coil.SetCompute(false)
	if obs := c.Obstructions(); len(obs) != 1 || obs[0] != wall {
		t.Errorf("Obstructions after SetCompute(false) = %v, want [wall].", names(obs))
	}
}

func names(structs []*Structure) []string {
	out := make([]string, len(structs))
	for i, s := range structs {
		out[i] = s.Name()
	}
	return out
}

func TestCollectionGet(t *testing.T) {
	plasma := torSquare(t, 1, nil)
	c, err := NewCollection(plasma)
	if err != nil {
		t.Fatal(err)
	}
	if got, ok := c.Get(PlasmaDomain, plasma.Name()); !ok || got != plasma {
		t.Errorf("Get(PlasmaDomain, %q) = %v, %v.", plasma.Name(), got, ok)
	}
	if _, ok := c.Get(Vessel, plasma.Name()); ok {
		t.Errorf("Get with the wrong kind found a structure.")
	}
}

func TestGenTracksGeometryChanges(t *testing.T) {
	s := torSquare(t, 1, nil)
	c, err := NewCollection(s)
	if err != nil {
		t.Fatal(err)
	}

	g0 := c.Gen()
	s.Invalidate()
	g1 := c.Gen()
	if g1 == g0 {
		t.Errorf("Gen unchanged after Invalidate.")
	}
	if err := s.SetPoly(unitSquare(t, 2, 0), nil); err != nil {
		t.Fatal(err)
	}
	if c.Gen() == g1 {
		t.Errorf("Gen unchanged after SetPoly.")
	}
}

func TestStructureValidation(t *testing.T) {
	if _, err := NewStructure("", Vessel, Tor, unitSquare(t, 0, 0), nil); err == nil {
		t.Errorf("Accepted an empty structure name.")
	}
	if _, err := NewStructure("v", Vessel, Tor, nil, nil); err == nil {
		t.Errorf("Accepted a nil polygon.")
	}
	if _, err := NewStructure("v", Vessel, Lin, unitSquare(t, 0, 0), nil); err == nil {
		t.Errorf("Accepted a Lin structure without windows.")
	}
	s, err := NewStructure("v", Vessel, Tor, unitSquare(t, 0, 0), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetPoly(unitSquare(t, 0, 0), [][2]float64{{1, 1}}); err == nil {
		t.Errorf("SetPoly accepted a zero-width toroidal window.")
	}
}
