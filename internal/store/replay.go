package store

import (
	"context"
	"fmt"

	"github.com/roach88/ixengine/internal/dom"
)

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Applied int `json:"applied"`
	// Unresolved lists element labels that matched nothing, once each.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Replay re-applies a run's recorded writes to a, in order, up to and
// including frame upTo (negative replays everything). Elements are resolved
// by their recorded label, which is a selector.
//
// Replaying onto the fixture a run started from reproduces the styles,
// attributes and classes the engine left behind, without running the engine.
func (s *Store) Replay(ctx context.Context, runID string, a dom.Adapter, upTo int) (ReplayResult, error) {
	if _, err := s.ReadRun(ctx, runID); err != nil {
		return ReplayResult{}, fmt.Errorf("replay: %w", err)
	}

	var result ReplayResult
	resolved := map[string]dom.Node{}
	missing := map[string]bool{}

	err := s.eachPaint(ctx, runID, upTo, func(_ int, p dom.Paint) error {
		n, ok := resolved[p.Element]
		if !ok {
			if nodes := a.QueryAll(p.Element); len(nodes) > 0 {
				n = nodes[0]
			}
			resolved[p.Element] = n
		}
		if n == nil {
			if !missing[p.Element] {
				missing[p.Element] = true
				result.Unresolved = append(result.Unresolved, p.Element)
			}
			return nil
		}
		if err := applyPaint(a, n, p); err != nil {
			return err
		}
		result.Applied++
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("replay: %w", err)
	}
	return result, nil
}

func applyPaint(a dom.Adapter, n dom.Node, p dom.Paint) error {
	switch p.Op {
	case dom.OpSetStyle:
		a.SetStyle(n, p.Name, p.Value)
	case dom.OpRemoveStyle:
		a.RemoveStyle(n, p.Name)
	case dom.OpSetAttribute:
		a.SetAttribute(n, p.Name, p.Value)
	case dom.OpAddClass:
		a.AddClass(n, p.Name)
	case dom.OpRemoveClass:
		a.RemoveClass(n, p.Name)
	default:
		return fmt.Errorf("unknown paint op %q on %s", p.Op, p.Element)
	}
	return nil
}
