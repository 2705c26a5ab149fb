package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const agentColumns = `id, user_id, phone_number, twilio_phone_number, llm_id, retell_id, questions, created_at, updated_at`

// AgentRepository stores agent records in a local SQLite file for
// single-node and development use.
type AgentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ domain.AgentRepository = (*AgentRepository)(nil)

func NewAgentRepository(db *sql.DB, logger *slog.Logger) *AgentRepository {
	return &AgentRepository{db: db, logger: logger.With("component", "agent_repository_sqlite")}
}

// Upsert inserts or replaces the row with rec.PhoneNumber inside one
// transaction. An existing row keeps its id and created_at.
func (r *AgentRepository) Upsert(ctx context.Context, rec *domain.AgentRecord) (domain.ChangeType, error) {
	prepareRecord(rec)
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	changeType := domain.ChangeInsert
	var existing string
	err = tx.QueryRowContext(ctx, `SELECT id FROM agents WHERE phone_number = ?`, rec.PhoneNumber).Scan(&existing)
	switch {
	case err == nil:
		changeType = domain.ChangeUpdate
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("checking existing agent: %w", err)
	}

	var (
		id        string
		createdAt string
	)
	err = tx.QueryRowContext(ctx, `INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone_number) DO UPDATE SET
			user_id = excluded.user_id,
			twilio_phone_number = excluded.twilio_phone_number,
			llm_id = excluded.llm_id,
			retell_id = excluded.retell_id,
			questions = excluded.questions,
			updated_at = excluded.updated_at
		RETURNING id, created_at`,
		rec.ID.String(), rec.UserID, rec.PhoneNumber, rec.TwilioPhoneNumber, rec.LLMID, rec.RetellID,
		string(questions), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	).Scan(&id, &createdAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert agent", "error", err, "phone_number", rec.PhoneNumber)
		return "", fmt.Errorf("upserting agent: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit upsert: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return "", fmt.Errorf("parsing agent id: %w", err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return "", err
	}
	return changeType, nil
}

func (r *AgentRepository) Insert(ctx context.Context, rec *domain.AgentRecord) (*domain.AgentRecord, error) {
	prepareRecord(rec)
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO agents (`+agentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.UserID, rec.PhoneNumber, rec.TwilioPhoneNumber, rec.LLMID, rec.RetellID,
		string(questions), formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("inserting agent: %w", err)
	}
	return rec, nil
}

func (r *AgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("deleting agent %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting agent %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AgentRecord, error) {
	return r.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id.String())
}

func (r *AgentRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.AgentRecord, error) {
	return r.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE phone_number = ?`, phoneNumber)
}

func (r *AgentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.AgentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing agents for user: %w", err)
	}
	defer rows.Close()

	agents := make([]*domain.AgentRecord, 0)
	for rows.Next() {
		rec, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, rec)
	}
	return agents, rows.Err()
}

func (r *AgentRepository) getOne(ctx context.Context, query string, arg any) (*domain.AgentRecord, error) {
	rec, err := scanAgent(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (*domain.AgentRecord, error) {
	var (
		rec                  domain.AgentRecord
		id, questions        string
		createdAt, updatedAt string
	)
	if err := row.Scan(&id, &rec.UserID, &rec.PhoneNumber, &rec.TwilioPhoneNumber, &rec.LLMID, &rec.RetellID,
		&questions, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning agent: %w", err)
	}

	var err error
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing agent id: %w", err)
	}
	rec.Questions = []string{}
	if questions != "" {
		if err := json.Unmarshal([]byte(questions), &rec.Questions); err != nil {
			return nil, fmt.Errorf("decoding agent questions: %w", err)
		}
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}

func prepareRecord(rec *domain.AgentRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	if rec.Questions == nil {
		rec.Questions = []string{}
	}
}

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
