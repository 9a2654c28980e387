// Package archive keeps finished engagements after they leave the live
// session store.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/honeypot/internal/config"
	"github.com/soyeahso/honeypot/internal/logging"
)

// ErrNotFound is returned by Get for an unknown session.
var ErrNotFound = errors.New("archive: engagement not found")

// Record is one archived engagement. Saving a record for a session that is
// already archived replaces it.
type Record struct {
	SessionID    string          `json:"sessionId"`
	ScamDetected bool            `json:"scamDetected"`
	ScamType     string          `json:"scamType"`
	Confidence   string          `json:"confidence"`
	Grade        string          `json:"grade"`
	Score        int             `json:"score"`
	TurnCount    int             `json:"turnCount"`
	MessageCount int             `json:"messageCount"`
	ExitReason   string          `json:"exitReason"`
	EndedAt      time.Time       `json:"endedAt"`
	Report       json.RawMessage `json:"report,omitempty"`
}

// Stats summarises the archive.
type Stats struct {
	Total   int            `json:"total"`
	Scams   int            `json:"scams"`
	ByGrade map[string]int `json:"byGrade"`
	ByType  map[string]int `json:"byScamType"`
}

// Store is an engagement archive backend.
type Store interface {
	Save(ctx context.Context, r Record) error
	Get(ctx context.Context, sessionID string) (Record, error)
	// List returns up to limit records, most recently ended first. A
	// non-positive limit returns everything.
	List(ctx context.Context, limit int) ([]Record, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Open opens the backend selected by cfg. The "none" driver yields a nil
// Store and no error. defaultPath is used by sqlite when cfg.DSN is empty.
func Open(ctx context.Context, cfg config.ArchiveConfig, defaultPath string, log *logging.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path := cfg.DSN
		if path == "" {
			path = defaultPath
		}
		s, err := OpenSQLite(path, log)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		p, err := OpenPostgres(ctx, cfg.DSN, log)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive driver %q", cfg.Driver)
	}
}

func newStats() Stats {
	return Stats{ByGrade: map[string]int{}, ByType: map[string]int{}}
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
