package orchestrator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pateepk/agilesite-ci/internal/model"
)

// ErrDependencyCycle is returned when object types depend on each other.
var ErrDependencyCycle = errors.New("object type dependency cycle")

// Order sorts types so that every type follows its parent type and its
// dependencies. Edges to types outside the list are ignored. Types that are
// ready at the same time are taken alphabetically.
func Order(types []*model.TypeInfo) ([]*model.TypeInfo, error) {
	byName := make(map[string]*model.TypeInfo, len(types))
	for _, t := range types {
		byName[t.Key()] = t
	}

	indegree := make(map[string]int, len(byName))
	for name := range byName {
		indegree[name] = 0
	}
	dependents := make(map[string][]string, len(byName))
	for name, t := range byName {
		for _, dep := range t.DependsOn() {
			if _, ok := byName[dep]; !ok {
				continue
			}
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, n := range indegree {
		if n == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	out := make([]*model.TypeInfo, 0, len(byName))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		out = append(out, byName[name])

		added := false
		for _, d := range dependents[name] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
				added = true
			}
		}
		if added {
			sort.Strings(ready)
		}
	}

	if len(out) != len(byName) {
		var stuck []string
		for name, n := range indegree {
			if n > 0 {
				stuck = append(stuck, name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(stuck, ", "))
	}
	return out, nil
}
