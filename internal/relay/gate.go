package relay

import (
	"anonrelay/backend/internal/models"
	"anonrelay/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
)

// Gate is the process-wide maintenance switch. The flag is persisted on
// every change and cached for the per-event read.
type Gate struct {
	store   storage.Storage
	active  atomic.Bool
	metrics *Metrics
}

// NewGate loads the persisted flag; def applies when none was ever saved.
func NewGate(ctx context.Context, s storage.Storage, def bool, m *Metrics) (*Gate, error) {
	g := &Gate{store: s, metrics: m}
	v, err := s.GetSetting(ctx, models.SettingMaintenance)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		g.active.Store(def)
	case err != nil:
		return nil, fmt.Errorf("load maintenance flag: %w", err)
	default:
		active, perr := strconv.ParseBool(v)
		if perr != nil {
			log.Printf("WARN: Ignoring malformed maintenance flag %q: %v", v, perr)
			active = def
		}
		g.active.Store(active)
	}
	m.setMaintenance(g.active.Load())
	return g, nil
}

// IsActive reports whether sender-facing input is currently refused.
func (g *Gate) IsActive() bool {
	return g.active.Load()
}

// SetActive persists and applies the flag. Callers check operator rights.
func (g *Gate) SetActive(ctx context.Context, active bool) error {
	if err := g.store.PutSetting(ctx, models.SettingMaintenance, strconv.FormatBool(active)); err != nil {
		return fmt.Errorf("persist maintenance flag: %w", err)
	}
	g.active.Store(active)
	g.metrics.setMaintenance(active)
	log.Printf("INFO: Maintenance mode set to %t", active)
	return nil
}
