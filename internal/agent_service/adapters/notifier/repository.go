package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/contractor-agent/golang_services/internal/agent_service/domain"
)

// NotifyingRepository publishes a change event after every successful write
// to the wrapped repository. Publish failures are logged, never returned.
type NotifyingRepository struct {
	domain.AgentRepository
	notifier domain.ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

var _ domain.AgentRepository = (*NotifyingRepository)(nil)

func NewNotifyingRepository(repo domain.AgentRepository, notifier domain.ChangeNotifier, logger *slog.Logger) *NotifyingRepository {
	return &NotifyingRepository{
		AgentRepository: repo,
		notifier:        notifier,
		logger:          logger.With("component", "notifying_repository"),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (r *NotifyingRepository) Upsert(ctx context.Context, rec *domain.AgentRecord) (domain.ChangeType, error) {
	changeType, err := r.AgentRepository.Upsert(ctx, rec)
	if err != nil {
		return changeType, err
	}
	r.publish(ctx, changeType, rec)
	return changeType, nil
}

func (r *NotifyingRepository) Insert(ctx context.Context, rec *domain.AgentRecord) (*domain.AgentRecord, error) {
	created, err := r.AgentRepository.Insert(ctx, rec)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, domain.ChangeInsert, created)
	return created, nil
}

// Delete loads the record first so the DELETE event can be routed to its owner.
func (r *NotifyingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	existing, err := r.AgentRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.AgentRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, domain.ChangeDelete, existing)
	return nil
}

func (r *NotifyingRepository) publish(ctx context.Context, changeType domain.ChangeType, rec *domain.AgentRecord) {
	evt := domain.ChangeEvent{
		ID:         uuid.New(),
		Table:      domain.AgentsTable,
		Type:       changeType,
		UserID:     rec.UserID,
		Record:     rec,
		OccurredAt: r.now(),
	}
	if err := r.notifier.Publish(context.WithoutCancel(ctx), evt); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish change event", "error", err, "agent_id", rec.ID, "type", changeType)
	}
}
