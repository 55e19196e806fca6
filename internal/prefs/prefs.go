// Package prefs keeps client preferences that must survive a restart.
package prefs

import (
	"context"
	"strconv"
)

// DarkThemeKey is the key the theme preference is stored under.
const DarkThemeKey = "darkTheme"

// Store is durable key-value storage for preferences.
type Store interface {
	// Get returns the value for key; found is false if it was never set.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Theme reads and writes the dark-theme flag on top of a Store.
type Theme struct {
	store Store
}

func NewTheme(store Store) *Theme {
	return &Theme{store: store}
}

// DarkTheme reports whether the dark theme is on. A missing or unreadable value means off.
func (t *Theme) DarkTheme(ctx context.Context) (bool, error) {
	v, found, err := t.store.Get(ctx, DarkThemeKey)
	if err != nil || !found {
		return false, err
	}
	on, err := strconv.ParseBool(v)
	if err != nil {
		return false, nil
	}
	return on, nil
}

func (t *Theme) SetDarkTheme(ctx context.Context, on bool) error {
	return t.store.Set(ctx, DarkThemeKey, strconv.FormatBool(on))
}

// Toggle flips the flag and returns the new value.
func (t *Theme) Toggle(ctx context.Context) (bool, error) {
	on, err := t.DarkTheme(ctx)
	if err != nil {
		return false, err
	}
	if err := t.SetDarkTheme(ctx, !on); err != nil {
		return false, err
	}
	return !on, nil
}
