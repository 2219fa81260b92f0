package rbac

import "sort"

// Matrix maps resource → action → allowed. A resolved matrix is dense: every
// (resource, action) pair known system-wide is present, false unless granted.
type Matrix map[string]map[string]bool

// NewMatrix builds an all-false matrix over the given universe of pairs.
func NewMatrix(universe []Pair) Matrix {
	m := make(Matrix, len(universe))
	for _, p := range universe {
		m.set(p, false)
	}
	return m
}

// Grant marks the pair as allowed, adding it when absent.
func (m Matrix) Grant(p Pair) {
	m.set(p, true)
}

func (m Matrix) set(p Pair, allowed bool) {
	actions, ok := m[p.Resource]
	if !ok {
		actions = make(map[string]bool)
		m[p.Resource] = actions
	}
	if allowed || !actions[p.Action] {
		actions[p.Action] = allowed
	}
}

// Allows reports whether the action on resource is granted. Unknown pairs and
// nil matrices are never allowed.
func (m Matrix) Allows(resource, action string) bool {
	return m[resource][action]
}

// Resources returns the resource names in sorted order.
func (m Matrix) Resources() []string {
	names := make([]string, 0, len(m))
	for r := range m {
		names = append(names, r)
	}
	sort.Strings(names)
	return names
}

// Actions returns the sorted action names known for resource.
func (m Matrix) Actions(resource string) []string {
	actions := make([]string, 0, len(m[resource]))
	for a := range m[resource] {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Size returns the number of (resource, action) cells.
func (m Matrix) Size() int {
	n := 0
	for _, actions := range m {
		n += len(actions)
	}
	return n
}

// Granted returns the allowed pairs sorted by resource then action.
func (m Matrix) Granted() []Pair {
	var pairs []Pair
	for _, r := range m.Resources() {
		for _, a := range m.Actions(r) {
			if m[r][a] {
				pairs = append(pairs, Pair{Resource: r, Action: a})
			}
		}
	}
	return pairs
}
