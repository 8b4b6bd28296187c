/*
Package router picks which provider serves an invocation: the single
owner of a namespaced target, or the best-scoring connected member of a
merged tool plus an ordered fallback chain.
*/
package router

import (
	"fmt"
	"sort"

	"github.com/theapemachine/metamcp/pkg/dedup"
	"github.com/theapemachine/metamcp/pkg/errors"
	"github.com/theapemachine/metamcp/pkg/metrics"
)

// maxFallbacks bounds the fallback chain after the primary.
const maxFallbacks = 3

// Connectivity answers whether a provider currently holds a live session.
type Connectivity interface {
	Connected(id string) bool
}

// Decision names the primary provider for a call plus the fallbacks to
// try, in order, when it fails.
type Decision struct {
	Primary    string   `json:"primary"`
	Fallbacks  []string `json:"fallbacks"`
	Confidence float64  `json:"confidence"`
	Reasons    []string `json:"reasons"`
}

// Router ranks candidate providers by their observed metrics. Scores are
// recomputed on every call; metrics are cheap and drift matters.
type Router struct {
	metrics *metrics.Store
	status  Connectivity
}

func New(store *metrics.Store, status Connectivity) *Router {
	return &Router{metrics: store, status: status}
}

// RouteNamespaced resolves a "<provider>:<tool>" target. There is nothing
// to rank: the named provider either serves it or the call fails.
func (router *Router) RouteNamespaced(providerID, toolName string) (Decision, error) {
	if !router.status.Connected(providerID) {
		return Decision{}, errors.New(errors.KindProviderUnavailable,
			fmt.Errorf("provider %q is not connected", providerID))
	}

	return Decision{
		Primary:    providerID,
		Confidence: 1.0,
		Reasons:    []string{fmt.Sprintf("explicit namespace %s:%s", providerID, toolName)},
	}, nil
}

// RouteMerged ranks the merged tool's connected members and returns the
// best as primary with up to three fallbacks. Ties keep member insertion
// order.
func (router *Router) RouteMerged(merged dedup.MergedTool) (Decision, error) {
	type candidate struct {
		providerID string
		toolName   string
		score      float64
		order      int
	}

	var candidates []candidate
	for i, member := range merged.Members {
		if !router.status.Connected(member.ProviderID) {
			continue
		}

		candidates = append(candidates, candidate{
			providerID: member.ProviderID,
			toolName:   member.Tool.Name,
			score:      router.metrics.Score(member.ProviderID, member.Tool.Name),
			order:      i,
		})
	}

	if len(candidates) == 0 {
		return Decision{}, errors.New(errors.KindProviderUnavailable,
			fmt.Errorf("no connected provider serves %q", merged.Name))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].order < candidates[j].order
	})

	decision := Decision{
		Primary:    candidates[0].providerID,
		Confidence: candidates[0].score,
		Reasons: []string{fmt.Sprintf("provider %s scored %.3f for %s",
			candidates[0].providerID, candidates[0].score, candidates[0].toolName)},
	}

	for _, c := range candidates[1:] {
		if len(decision.Fallbacks) == maxFallbacks {
			break
		}
		decision.Fallbacks = append(decision.Fallbacks, c.providerID)
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("fallback %s scored %.3f", c.providerID, c.score))
	}

	return decision, nil
}
