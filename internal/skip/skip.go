// Package skip decides whether a work item already has output under any of the
// candidate result roots.
package skip

import (
	"context"
	"fmt"
	"strings"

	"docbatch/internal/blobstore"
	"docbatch/internal/services"
)

// Decision is the outcome of ShouldSkip.
type Decision struct {
	Skip bool
	// Root is the first candidate root holding output for the item.
	Root string
	// Location is the existing output blob.
	Location string
}

// Prober is the read-only part of blobstore.Store the evaluator needs.
type Prober interface {
	Exists(ctx context.Context, location string) (bool, error)
}

// Evaluator probes candidate output roots in order, newest first.
type Evaluator struct {
	prober Prober
	roots  []string
}

// NewEvaluator builds an evaluator. The primary root is always probed first;
// duplicate and blank roots are dropped.
func NewEvaluator(prober Prober, primary string, candidates ...string) *Evaluator {
	roots := make([]string, 0, len(candidates)+1)
	seen := make(map[string]struct{}, len(candidates)+1)
	for _, root := range append([]string{primary}, candidates...) {
		root = strings.TrimRight(strings.TrimSpace(root), "/")
		if root == "" {
			continue
		}
		if _, ok := seen[root]; ok {
			continue
		}
		seen[root] = struct{}{}
		roots = append(roots, root)
	}
	return &Evaluator{prober: prober, roots: roots}
}

// Roots returns the probe order.
func (e *Evaluator) Roots() []string {
	return append([]string(nil), e.roots...)
}

// ShouldSkip reports whether output named name exists under any root. With
// force set it never skips and performs no probes.
func (e *Evaluator) ShouldSkip(ctx context.Context, name string, force bool) (Decision, error) {
	if force {
		return Decision{}, nil
	}
	for _, root := range e.roots {
		location := blobstore.Join(root, name)
		ok, err := e.prober.Exists(ctx, location)
		if err != nil {
			return Decision{}, services.Wrap(services.ErrTransientIO, "skip", "probe", fmt.Sprintf("root %s", root), err)
		}
		if ok {
			return Decision{Skip: true, Root: root, Location: location}, nil
		}
	}
	return Decision{}, nil
}
