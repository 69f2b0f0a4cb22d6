package manifest

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/pipegen/internal/ctxlog"
)

// DeploymentSpecKey is the top-level section holding executor groups.
const DeploymentSpecKey = "deploymentSpec"

var (
	// ErrNoDeploymentSpec is returned when no document carries a deploymentSpec.
	ErrNoDeploymentSpec = errors.New("the provided documents do not contain a 'deploymentSpec' key")

	// ErrIncompleteContainerSpec is returned when an executor is found but its
	// container lacks command, args or image.
	ErrIncompleteContainerSpec = errors.New("incomplete container spec")
)

// containerFields are checked in this order; the first missing one is reported.
var containerFields = []string{"command", "args", "image"}

// ContainerSpec is the container of one executor as written in the manifest.
type ContainerSpec struct {
	Image   string
	Command []string
	Args    []string
}

// ContainerError describes which part of an executor's container is unusable.
type ContainerError struct {
	Executor string
	Field    string
	Reason   string
}

func (e *ContainerError) Error() string {
	return fmt.Sprintf("executor '%s' does not have a usable '%s' field: %s", e.Executor, e.Field, e.Reason)
}

func (e *ContainerError) Unwrap() error {
	return ErrIncompleteContainerSpec
}

// Locate returns the container spec of the named executor.
//
// Only the first document with a non-empty deploymentSpec is searched; later
// ones are ignored. Every executor group in it is searched and the first
// match wins. A name missing from every group is reported with found=false
// and a nil error so callers can skip optional steps. Log records carry no
// executor attribute; callers tag the context logger with ctxlog.With.
func Locate(ctx context.Context, m *Manifest, name string) (spec ContainerSpec, found bool, err error) {
	logger := ctxlog.FromContext(ctx)

	for _, doc := range m.Documents {
		deployment, res := doc.Get(DeploymentSpecKey)
		if res != Found || deployment.IsEmpty() {
			continue
		}
		logger.Debug("Found deploymentSpec.", "path", deployment.Path())

		groups, res := deployment.Entries()
		if res == Malformed {
			return ContainerSpec{}, false, fmt.Errorf("%w: %s is not a mapping", ErrMalformedManifest, deployment.Path())
		}
		for _, group := range groups {
			executors, res := group.Value.Entries()
			if res == Malformed {
				return ContainerSpec{}, false, fmt.Errorf("%w: executor group %s is not a mapping", ErrMalformedManifest, group.Value.Path())
			}
			for _, executor := range executors {
				if executor.Key != name {
					continue
				}
				spec, err := containerSpec(name, executor.Value)
				if err != nil {
					return ContainerSpec{}, false, err
				}
				logger.Debug("Executor located.", "group", group.Key, "image", spec.Image)
				return spec, true, nil
			}
		}

		logger.Warn("Executor not found in deploymentSpec.")
		return ContainerSpec{}, false, nil
	}

	return ContainerSpec{}, false, ErrNoDeploymentSpec
}

func containerSpec(name string, executor Node) (ContainerSpec, error) {
	container, res := executor.Get("container")
	switch {
	case res == Malformed:
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "container", Reason: "executor is not a mapping"}
	case res == Absent:
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "container", Reason: "missing"}
	}
	if _, res := container.Entries(); res == Malformed {
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "container", Reason: "not a mapping"}
	}

	for _, field := range containerFields {
		if !container.Has(field) {
			return ContainerSpec{}, &ContainerError{Executor: name, Field: field, Reason: "missing"}
		}
	}

	var spec ContainerSpec
	var ok bool
	if spec.Command, ok = stringList(container, "command"); !ok {
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "command", Reason: "not a sequence of strings"}
	}
	if spec.Args, ok = stringList(container, "args"); !ok {
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "args", Reason: "not a sequence of strings"}
	}
	image, _ := container.Get("image")
	if spec.Image, res = image.Scalar(); res != Found {
		return ContainerSpec{}, &ContainerError{Executor: name, Field: "image", Reason: "not a string"}
	}
	return spec, nil
}

func stringList(container Node, field string) ([]string, bool) {
	n, _ := container.Get(field)
	values, res := n.Strings()
	if res != Found {
		return nil, false
	}
	return values, true
}
