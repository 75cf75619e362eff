package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"treelof-api/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RevisionChangesChannel is the NOTIFY channel fed by the revisions trigger
// on UPDATE and DELETE, i.e. moderation done outside this service.
const RevisionChangesChannel = "revision_changes"

const listenRetryDelay = 5 * time.Second

type RevisionChange struct {
	Reference   string `json:"reference"`
	ReferenceID string `json:"reference_id"`
}

// ParseRevisionChange decodes a revision_changes payload.
func ParseRevisionChange(payload string) (RevisionChange, error) {
	var c RevisionChange
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return c, fmt.Errorf("invalid revision change payload: %w", err)
	}
	if c.Reference == "" || c.ReferenceID == "" {
		return c, errors.New("revision change payload without reference")
	}
	return c, nil
}

// RevisionChangeListener calls OnChange for every revision changed in the
// database by another process.
type RevisionChangeListener struct {
	pool     *pgxpool.Pool
	onChange func(ctx context.Context, reference, referenceID string)
	log      *logger.Logger
}

func NewRevisionChangeListener(pool *pgxpool.Pool, onChange func(ctx context.Context, reference, referenceID string), log *logger.Logger) *RevisionChangeListener {
	return &RevisionChangeListener{pool: pool, onChange: onChange, log: log.With("component", "revision_listener")}
}

// Run listens until ctx is done, reconnecting after failures.
func (l *RevisionChangeListener) Run(ctx context.Context) {
	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return
		}
		l.log.Warn("revision change listener stopped, retrying", "error", err, "delay", listenRetryDelay.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}

func (l *RevisionChangeListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+RevisionChangesChannel); err != nil {
		return err
	}
	l.log.Info("listening for revision changes", "channel", RevisionChangesChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		l.Handle(ctx, n.Payload)
	}
}

// Handle processes one notification payload.
func (l *RevisionChangeListener) Handle(ctx context.Context, payload string) {
	change, err := ParseRevisionChange(payload)
	if err != nil {
		l.log.Warn("ignoring revision change", "payload", payload, "error", err)
		return
	}
	l.onChange(ctx, change.Reference, change.ReferenceID)
}
