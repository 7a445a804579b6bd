package geom

import (
	"fmt"
)

type structKey struct {
	kind Kind
	name string
}

// Collection is an ordered, name-keyed grouping of Structures sharing one
// sweep type. Exactly the members with Compute() set participate in ray
// intersection; the single PlasmaDomain member is the reference solid and
// every other computing member obstructs.
type Collection struct {
	structs []*Structure
	index   map[structKey]int
	vtype   VType
	gen     uint64
}

// NewCollection builds a collection from the given structures. Duplicate
// (kind, name) pairs and mixed sweep types are rejected.
func NewCollection(structs ...*Structure) (*Collection, error) {
	if len(structs) == 0 {
		return nil, fmt.Errorf("geom: empty collection")
	}
	c := &Collection{
		index: make(map[structKey]int, len(structs)),
		vtype: structs[0].Type(),
	}
	for _, s := range structs {
		if err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a structure to the collection.
func (c *Collection) Add(s *Structure) error {
	if s.Type() != c.vtype {
		return fmt.Errorf("geom: structure %q is %v, collection is %v",
			s.Name(), s.Type(), c.vtype)
	}
	key := structKey{s.Kind(), s.Name()}
	if _, dup := c.index[key]; dup {
		return fmt.Errorf("geom: duplicate structure (%v, %q)", s.Kind(), s.Name())
	}
	c.index[key] = len(c.structs)
	c.structs = append(c.structs, s)
	c.gen++
	return nil
}

// Type returns the shared sweep type.
func (c *Collection) Type() VType { return c.vtype }

// Structures returns the members in insertion order.
func (c *Collection) Structures() []*Structure { return c.structs }

// Get returns the member with the given kind and name.
func (c *Collection) Get(kind Kind, name string) (*Structure, bool) {
	i, ok := c.index[structKey{kind, name}]
	if !ok {
		return nil, false
	}
	return c.structs[i], true
}

// Reference returns the single PlasmaDomain member used as the reference
// solid for sight computations.
func (c *Collection) Reference() (*Structure, error) {
	var ref *Structure
	for _, s := range c.structs {
		if s.Kind() != PlasmaDomain {
			continue
		}
		if ref != nil {
			return nil, fmt.Errorf("geom: collection has several PlasmaDomain structures (%q, %q)",
				ref.Name(), s.Name())
		}
		ref = s
	}
	if ref == nil {
		return nil, fmt.Errorf("geom: collection has no PlasmaDomain structure")
	}
	return ref, nil
}

// Obstructions returns the computing, non-reference members in order.
func (c *Collection) Obstructions() []*Structure {
	var obs []*Structure
	for _, s := range c.structs {
		if s.Kind() != PlasmaDomain && s.Compute() {
			obs = append(obs, s)
		}
	}
	return obs
}

// Gen returns a counter that changes whenever the collection or any member
// geometry does, used by ray bundles to invalidate cached intersections.
func (c *Collection) Gen() uint64 {
	g := c.gen
	for _, s := range c.structs {
		g += s.Gen()
	}
	return g
}

// IsInside classifies the point batch against every member, one row per
// structure. Members with several occurrence windows are collapsed with the
// log reduction: "any" keeps points inside at least one window, "all" only
// points inside every window.
func (c *Collection) IsInside(pts []Vec, frame Frame, log string) ([][]bool, error) {
	if log != "any" && log != "all" {
		return nil, fmt.Errorf("geom: log must be \"any\" or \"all\", got %q", log)
	}
	out := make([][]bool, len(c.structs))
	for i, s := range c.structs {
		rows, err := s.IsInside(pts, frame)
		if err != nil {
			return nil, fmt.Errorf("geom: structure %q: %w", s.Name(), err)
		}
		row := rows[0]
		for _, r := range rows[1:] {
			for j := range row {
				if log == "any" {
					row[j] = row[j] || r[j]
				} else {
					row[j] = row[j] && r[j]
				}
			}
		}
		out[i] = row
	}
	return out, nil
}

// PInOut runs the ray-solid intersection engine against the collection's
// reference solid and obstructions. See ComputePInOut.
func (c *Collection) PInOut(D, u []Vec, params IntersectionParams) (*IntersectionResult, error) {
	ref, err := c.Reference()
	if err != nil {
		return nil, err
	}
	return ComputePInOut(D, u, ref, c.Obstructions(), params)
}
