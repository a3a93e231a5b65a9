// Package chatdefaults keeps the per-chat default client overrides.
//
// The map is never cached: callers Load before every use and Save after every
// mutation, so several processes can share one backing file.
package chatdefaults

import (
	"context"
	"errors"
	"strconv"
)

var ErrCorruptState = errors.New("chat defaults: corrupt state")

// Map is chat id (decimal string) -> client id.
type Map map[string]string

// Store is the persistence boundary for Map. Implementations do not validate
// client ids; that happens before Save.
type Store interface {
	Load(ctx context.Context) (Map, error)
	Save(ctx context.Context, m Map) error
}

func Key(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func (m Map) GetDefault(chatID int64, fallback string) string {
	if v, ok := m[Key(chatID)]; ok {
		return v
	}
	return fallback
}

func (m Map) Set(chatID int64, clientID string) {
	m[Key(chatID)] = clientID
}
