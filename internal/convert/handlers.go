package convert

import (
	"context"

	"github.com/obarth/ogate/internal/registry"
)

// Handler customizes conversion for one family of value types. Handlers
// are consulted in registration order before the structural default; the
// first handler whose Claims returns true owns the value. A handler may
// consume inner-path segments for sub-sections it knows about and must
// delegate anything it does not recognize back to Traversal.Structural.
type Handler interface {
	Claims(value any) bool
	Extract(ctx context.Context, t *Traversal, value any, path []string, depth int) (any, error)
}

// DefaultHandlers returns the extraction handlers shipped with the
// gateway.
func DefaultHandlers() []Handler {
	return []Handler{
		PoolStatsHandler{},
	}
}

// PoolStatsHandler extracts connection-pool statistics values. The pool's
// sub-sections are reachable by name through the inner path; the shared
// base fields are flattened into the top level.
type PoolStatsHandler struct{}

func (PoolStatsHandler) Claims(value any) bool {
	switch value.(type) {
	case *registry.PoolStatistics, registry.PoolStatistics:
		return true
	}
	return false
}

func (PoolStatsHandler) Extract(ctx context.Context, t *Traversal, value any, path []string, depth int) (any, error) {
	stats, ok := value.(*registry.PoolStatistics)
	if !ok {
		v := value.(registry.PoolStatistics)
		stats = &v
	}

	if id, hasID := identityOf(value); hasID {
		t.visited[id] = struct{}{}
		defer delete(t.visited, id)
	}

	sections := map[string]any{
		"active":   stats.Active,
		"idle":     stats.Idle,
		"waitTime": stats.WaitTime,
		"useTime":  stats.UseTime,
	}
	if stats.DataSource != nil {
		sections["dataSource"] = stats.DataSource
	}

	if len(path) > 0 {
		// A recognized section name descends without consuming depth.
		// Anything else falls back to the structural view of the pool.
		if section, known := sections[path[0]]; known {
			return t.Convert(ctx, section, path[1:], depth)
		}
		return t.Structural(ctx, *stats, path, depth)
	}

	if marker, budgetOK := t.takeObjectBudget(); !budgetOK {
		return marker, nil
	}

	out := map[string]any{
		"startTime":      stats.StartTime,
		"lastSampleTime": stats.LastSampleTime,
	}
	for name, section := range sections {
		converted, err := t.Convert(ctx, section, nil, depth+1)
		if err != nil {
			if t.limits.IgnoreErrors {
				out[name] = errorPlaceholder(err)
				continue
			}
			return nil, err
		}
		out[name] = converted
	}
	return out, nil
}
