package prefs

import (
	"context"

	"visionlex-server-go/internal/platform/logging"
	"visionlex-server-go/internal/platform/storage"
)

// Preferences are the user-tunable knobs the client persists between visits.
type Preferences struct {
	Theme       string `json:"theme"`
	Voice       string `json:"voice"`
	AutoSpeak   bool   `json:"autoSpeak"`
	SaveHistory bool   `json:"saveHistory"`
}

func defaults() Preferences {
	return Preferences{
		Theme:       "light",
		AutoSpeak:   true,
		SaveHistory: true,
	}
}

// Store reads and writes preferences through the persistence adapter.
// A missing or discarded record yields the defaults.
type Store struct {
	kv     *storage.KV
	logger *logging.Logger
}

func NewStore(kv *storage.KV, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return &Store{kv: kv, logger: logger}
}

func (s *Store) Get(ctx context.Context) Preferences {
	p := defaults()
	ok, err := s.kv.Get(ctx, storage.KeyUserPreferences, &p)
	if err != nil {
		s.logger.WarnTag("STORE", "read preferences: %v", err)
		return defaults()
	}
	if !ok {
		return defaults()
	}
	return p
}

// Update is the designated mutator: it applies fn to the current
// preferences and persists the result.
func (s *Store) Update(ctx context.Context, fn func(*Preferences)) Preferences {
	p := s.Get(ctx)
	fn(&p)
	if err := s.kv.Set(ctx, storage.KeyUserPreferences, p); err != nil {
		s.logger.WarnTag("STORE", "persist preferences: %v", err)
	}
	return p
}
