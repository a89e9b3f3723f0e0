package dispatch

import (
	"context"
	"runtime"
	"time"

	"github.com/obarth/ogate/internal/log"
	"github.com/obarth/ogate/internal/object"
	"github.com/obarth/ogate/internal/registry"
)

// Strategy produces zero or more registries during discovery.
type Strategy func(ctx context.Context) ([]registry.Registry, error)

// Discover runs every strategy in order and returns the combined
// registries, dropping duplicates by identity. A failing strategy is
// logged and skipped; the remaining strategies still run.
func Discover(ctx context.Context, strategies ...Strategy) []registry.Registry {
	seen := map[registry.Registry]struct{}{}
	var out []registry.Registry
	for _, strategy := range strategies {
		found, err := strategy(ctx)
		if err != nil {
			log.Warn(log.CatDispatch, "discovery strategy failed", "error", err.Error())
			continue
		}
		for _, r := range found {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// StaticStrategy yields pre-built registries.
func StaticStrategy(registries ...registry.Registry) Strategy {
	return func(context.Context) ([]registry.Registry, error) {
		return registries, nil
	}
}

// CatalogStrategy loads an object catalog file into a fresh registry.
func CatalogStrategy(path string) Strategy {
	return func(context.Context) ([]registry.Registry, error) {
		m := registry.NewMemory("catalog: " + path)
		if _, err := registry.LoadCatalogFile(path, m); err != nil {
			return nil, err
		}
		return []registry.Registry{m}, nil
	}
}

// PlatformStrategy builds the always-present platform registry exposing
// the host process runtime under the "runtime" domain.
func PlatformStrategy() Strategy {
	return func(ctx context.Context) ([]registry.Registry, error) {
		m := registry.NewMemory("platform runtime")
		start := time.Now()

		memName := object.MustParseName("runtime:type=Memory")
		memObj := registry.NewObject("heap and garbage collector statistics").
			WithAttribute("HeapAlloc", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.HeapAlloc }), Type: "long"}).
			WithAttribute("HeapSys", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.HeapSys }), Type: "long"}).
			WithAttribute("HeapObjects", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.HeapObjects }), Type: "long"}).
			WithAttribute("TotalAlloc", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.TotalAlloc }), Type: "long"}).
			WithAttribute("NumGC", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.NumGC }), Type: "long"}).
			WithAttribute("PauseTotalNs", registry.Attribute{Value: memGetter(func(s *runtime.MemStats) any { return s.PauseTotalNs }), Type: "long"}).
			WithOperation("gc", registry.Operation{
				Do: func(context.Context, []any) (any, error) {
					runtime.GC()
					return nil, nil
				},
				Description: "force a garbage collection cycle",
			})
		if _, err := m.Register(ctx, memObj, &memName); err != nil {
			return nil, err
		}

		rtName := object.MustParseName("runtime:type=Runtime")
		rtObj := registry.NewObject("process runtime information").
			WithAttribute("NumGoroutine", registry.Attribute{Value: registry.Getter(func() any { return runtime.NumGoroutine() }), Type: "int"}).
			WithAttribute("NumCPU", registry.Attribute{Value: runtime.NumCPU(), Type: "int"}).
			WithAttribute("GoVersion", registry.Attribute{Value: runtime.Version(), Type: "string"}).
			WithAttribute("OS", registry.Attribute{Value: runtime.GOOS, Type: "string"}).
			WithAttribute("Arch", registry.Attribute{Value: runtime.GOARCH, Type: "string"}).
			WithAttribute("UptimeSeconds", registry.Attribute{Value: registry.Getter(func() any { return int64(time.Since(start).Seconds()) }), Type: "long"})
		if _, err := m.Register(ctx, rtObj, &rtName); err != nil {
			return nil, err
		}

		return []registry.Registry{m}, nil
	}
}

func memGetter(field func(*runtime.MemStats) any) registry.Getter {
	return func() any {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		return field(&stats)
	}
}
