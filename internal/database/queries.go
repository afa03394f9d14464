package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the journal statements against a pool or transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// JournalEntry is one row of action_journal.
type JournalEntry struct {
	ID          uuid.UUID `json:"id"`
	StoreID     string    `json:"store_id"`
	OrderCode   string    `json:"order_code"`
	Action      string    `json:"action"`
	PerformerID uuid.UUID `json:"performer_id"`
	Role        string    `json:"role"`
	Outcome     string    `json:"outcome"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

const createJournalEntry = `
INSERT INTO action_journal (store_id, order_code, action, performer_id, role, outcome, message)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, store_id, order_code, action, performer_id, role, outcome, message, created_at
`

type CreateJournalEntryParams struct {
	StoreID     string
	OrderCode   string
	Action      string
	PerformerID uuid.UUID
	Role        string
	Outcome     string
	Message     string
}

func (q *Queries) CreateJournalEntry(ctx context.Context, arg CreateJournalEntryParams) (JournalEntry, error) {
	row := q.db.QueryRow(ctx, createJournalEntry,
		arg.StoreID,
		arg.OrderCode,
		arg.Action,
		arg.PerformerID,
		arg.Role,
		arg.Outcome,
		arg.Message,
	)
	var i JournalEntry
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.OrderCode,
		&i.Action,
		&i.PerformerID,
		&i.Role,
		&i.Outcome,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

const listJournalByOrder = `
SELECT id, store_id, order_code, action, performer_id, role, outcome, message, created_at
FROM action_journal
WHERE store_id = $1 AND order_code = $2
ORDER BY created_at ASC, id ASC
`

type ListJournalByOrderParams struct {
	StoreID   string
	OrderCode string
}

func (q *Queries) ListJournalByOrder(ctx context.Context, arg ListJournalByOrderParams) ([]JournalEntry, error) {
	rows, err := q.db.Query(ctx, listJournalByOrder, arg.StoreID, arg.OrderCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []JournalEntry{}
	for rows.Next() {
		var i JournalEntry
		if err := rows.Scan(
			&i.ID,
			&i.StoreID,
			&i.OrderCode,
			&i.Action,
			&i.PerformerID,
			&i.Role,
			&i.Outcome,
			&i.Message,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const summarizeJournal = `
SELECT action, outcome, COUNT(*) AS count
FROM action_journal
WHERE store_id = $1 AND created_at >= $2 AND created_at < $3
GROUP BY action, outcome
ORDER BY action, outcome
`

type SummarizeJournalParams struct {
	StoreID string
	From    time.Time
	To      time.Time
}

type SummarizeJournalRow struct {
	Action  string `json:"action"`
	Outcome string `json:"outcome"`
	Count   int64  `json:"count"`
}

func (q *Queries) SummarizeJournal(ctx context.Context, arg SummarizeJournalParams) ([]SummarizeJournalRow, error) {
	rows, err := q.db.Query(ctx, summarizeJournal, arg.StoreID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SummarizeJournalRow{}
	for rows.Next() {
		var i SummarizeJournalRow
		if err := rows.Scan(&i.Action, &i.Outcome, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
