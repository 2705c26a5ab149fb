package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

const profileColumns = `id, email, name, plan, avatar, created_at, updated_at`

// PgProfileRepository reads profiles owned by the auth subsystem and
// updates only the plan column.
type PgProfileRepository struct {
	db     Querier
	logger *slog.Logger
}

var _ domain.ProfileRepository = (*PgProfileRepository)(nil)

func NewPgProfileRepository(db Querier, logger *slog.Logger) *PgProfileRepository {
	return &PgProfileRepository{db: db, logger: logger.With("component", "profile_repository_pg")}
}

func (r *PgProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
}

func (r *PgProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email = $1`, email)
}

func (r *PgProfileRepository) UpdatePlan(ctx context.Context, id string, plan domain.Plan) error {
	if !plan.Valid() {
		return domain.Validationf("unknown plan %q", plan)
	}
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET plan = $2, updated_at = now() WHERE id = $1`, id, string(plan))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update plan", "profile_id", id, "error", err)
		return fmt.Errorf("updating plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgProfileRepository) getOne(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var (
		p    domain.Profile
		plan string
	)
	err := r.db.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Email, &p.Name, &plan, &p.Avatar, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	p.Plan = domain.Plan(plan)
	return &p, nil
}
