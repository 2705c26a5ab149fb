package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const agentColumns = `id, user_id, phone_number, twilio_phone_number, llm_id, retell_id, questions, created_at, updated_at`

type PgAgentRepository struct {
	db     Querier
	logger *slog.Logger
}

var _ domain.AgentRepository = (*PgAgentRepository)(nil)

func NewPgAgentRepository(db Querier, logger *slog.Logger) *PgAgentRepository {
	return &PgAgentRepository{db: db, logger: logger.With("component", "agent_repository_pg")}
}

// Upsert writes rec keyed on phone_number. On conflict the existing row keeps
// its id and created_at, which are copied back into rec.
func (r *PgAgentRepository) Upsert(ctx context.Context, rec *domain.AgentRecord) (domain.ChangeType, error) {
	prepareRecord(rec)
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return "", fmt.Errorf("marshal questions: %w", err)
	}

	query := `INSERT INTO agents (` + agentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (phone_number) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			twilio_phone_number = EXCLUDED.twilio_phone_number,
			llm_id = EXCLUDED.llm_id,
			retell_id = EXCLUDED.retell_id,
			questions = EXCLUDED.questions,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, (xmax = 0) AS inserted`

	var inserted bool
	err = r.db.QueryRow(ctx, query,
		rec.ID, rec.UserID, rec.PhoneNumber, rec.TwilioPhoneNumber, rec.LLMID, rec.RetellID, questions, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID, &rec.CreatedAt, &inserted)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert agent", "error", err, "phone_number", rec.PhoneNumber)
		return "", fmt.Errorf("upserting agent: %w", err)
	}

	if inserted {
		return domain.ChangeInsert, nil
	}
	return domain.ChangeUpdate, nil
}

func (r *PgAgentRepository) Insert(ctx context.Context, rec *domain.AgentRecord) (*domain.AgentRecord, error) {
	prepareRecord(rec)
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return nil, fmt.Errorf("marshal questions: %w", err)
	}

	query := `INSERT INTO agents (` + agentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.db.Exec(ctx, query,
		rec.ID, rec.UserID, rec.PhoneNumber, rec.TwilioPhoneNumber, rec.LLMID, rec.RetellID, questions, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert agent", "error", err, "phone_number", rec.PhoneNumber)
		return nil, fmt.Errorf("inserting agent: %w", err)
	}
	return rec, nil
}

func (r *PgAgentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting agent %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgAgentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AgentRecord, error) {
	return r.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
}

func (r *PgAgentRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*domain.AgentRecord, error) {
	return r.getOne(ctx, `SELECT `+agentColumns+` FROM agents WHERE phone_number = $1`, phoneNumber)
}

func (r *PgAgentRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.AgentRecord, error) {
	rows, err := r.db.Query(ctx, `SELECT `+agentColumns+` FROM agents WHERE user_id = $1 ORDER BY created_at DESC`, userID)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agents: %w", err)
	}
	return agents, nil
}

func (r *PgAgentRepository) getOne(ctx context.Context, query string, arg any) (*domain.AgentRecord, error) {
	rec, err := scanAgent(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func scanAgent(row pgx.Row) (*domain.AgentRecord, error) {
	var (
		rec       domain.AgentRecord
		questions []byte
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.PhoneNumber, &rec.TwilioPhoneNumber, &rec.LLMID, &rec.RetellID,
		&questions, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning agent: %w", err)
	}
	rec.Questions = []string{}
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &rec.Questions); err != nil {
			return nil, fmt.Errorf("decoding agent questions: %w", err)
		}
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
