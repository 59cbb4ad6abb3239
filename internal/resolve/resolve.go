// Package resolve computes the deployment order for an application's
// services from their declared dependencies.
package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pishro-io/pishro/internal/catalog"
)

// ErrDependencyCycle indicates a dependency cycle or a subset of services
// whose dependencies can never be satisfied.
var ErrDependencyCycle = errors.New("dependency cycle detected")

// Order returns the service names of the deploy such that every service
// appears after all of its dependencies.
//
// The order is computed with repeated passes: each pass appends every
// service whose dependencies have all been placed already, preserving the
// deploy.yaml mapping order among services that become eligible in the same
// pass. A pass that places nothing while services remain means the graph is
// stuck, which is reported instead of looping.
func Order(deploy *catalog.Deploy) ([]string, error) {
	result := make([]string, 0, deploy.Len())
	placed := make(map[string]bool, deploy.Len())

	remaining := deploy.ServiceNames()
	for len(remaining) > 0 {
		var next []string
		progress := false

		for _, name := range remaining {
			if satisfied(deploy.Service(name), placed) {
				result = append(result, name)
				placed[name] = true
				progress = true
			} else {
				next = append(next, name)
			}
		}

		if !progress {
			return nil, fmt.Errorf("%w: unable to order services %s",
				ErrDependencyCycle, strings.Join(next, ", "))
		}
		remaining = next
	}

	return result, nil
}

func satisfied(svc *catalog.Service, placed map[string]bool) bool {
	for _, dep := range svc.Dependencies {
		if !placed[dep] {
			return false
		}
	}
	return true
}
