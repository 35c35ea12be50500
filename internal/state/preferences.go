package state

import (
	"context"
	"fmt"
	"sync"

	perrors "github.com/p-blackswan/geoai-console/internal/errors"
	"github.com/p-blackswan/geoai-console/internal/models"
)

// Preference keys in the state database.
const (
	PrefMapFilesToggle = "mapFilesToggle"
	PrefMLTab          = "mlTab"
)

// PreferenceStore persists preferences between runs.
type PreferenceStore interface {
	GetPreference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
}

// Preferences are the user's display choices. Unknown stored values fall
// back to the defaults.
type Preferences struct {
	store PreferenceStore

	mu       sync.Mutex
	mapFiles models.MapFilesToggle
	mlTab    models.MLTab
}

// LoadPreferences reads preferences from ps. A nil ps keeps them in
// memory only.
func LoadPreferences(ctx context.Context, ps PreferenceStore) (*Preferences, error) {
	p := &Preferences{store: ps, mapFiles: models.ToggleBoth, mlTab: models.MLTabDefault}
	if ps == nil {
		return p, nil
	}

	if v, ok, err := ps.GetPreference(ctx, PrefMapFilesToggle); err != nil {
		return nil, err
	} else if ok && models.MapFilesToggle(v).Valid() {
		p.mapFiles = models.MapFilesToggle(v)
	}
	if v, ok, err := ps.GetPreference(ctx, PrefMLTab); err != nil {
		return nil, err
	} else if ok && models.MLTab(v).Valid() {
		p.mlTab = models.MLTab(v)
	}
	return p, nil
}

func (p *Preferences) MapFilesToggle() models.MapFilesToggle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mapFiles
}

// SetMapFilesToggle stores where the project page shows files.
func (p *Preferences) SetMapFilesToggle(ctx context.Context, v models.MapFilesToggle) error {
	if !v.Valid() {
		return fmt.Errorf("map files toggle %q: %w", v, perrors.ErrInvalidInput)
	}
	if err := p.persist(ctx, PrefMapFilesToggle, string(v)); err != nil {
		return err
	}
	p.mu.Lock()
	p.mapFiles = v
	p.mu.Unlock()
	return nil
}

func (p *Preferences) MLTab() models.MLTab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mlTab
}

// SetMLTab stores which model table is shown.
func (p *Preferences) SetMLTab(ctx context.Context, t models.MLTab) error {
	if !t.Valid() {
		return fmt.Errorf("ml tab %q: %w", t, perrors.ErrInvalidInput)
	}
	if err := p.persist(ctx, PrefMLTab, string(t)); err != nil {
		return err
	}
	p.mu.Lock()
	p.mlTab = t
	p.mu.Unlock()
	return nil
}

// Set updates a preference by key, as the CLI does.
func (p *Preferences) Set(ctx context.Context, key, value string) error {
	switch key {
	case PrefMapFilesToggle:
		return p.SetMapFilesToggle(ctx, models.MapFilesToggle(value))
	case PrefMLTab:
		return p.SetMLTab(ctx, models.MLTab(value))
	}
	return fmt.Errorf("unknown preference %q: %w", key, perrors.ErrInvalidInput)
}

// All returns every preference by key.
func (p *Preferences) All() map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]string{
		PrefMapFilesToggle: string(p.mapFiles),
		PrefMLTab:          string(p.mlTab),
	}
}

func (p *Preferences) persist(ctx context.Context, key, value string) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.SetPreference(ctx, key, value); err != nil {
		return fmt.Errorf("saving preference %s: %w", key, err)
	}
	return nil
}
