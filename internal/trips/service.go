package trips

import (
	"context"
	"time"

	"go.uber.org/zap"

	"journal-service/internal/events"
	"journal-service/internal/session"
	"journal-service/pkg/kafka"
)

const publishTimeout = 2 * time.Second

// Service contains trip business logic.
type Service struct {
	repo   Repository
	events events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

// NewService creates a trip service. A nil publisher disables events.
func NewService(repo Repository, pub events.Publisher, log *zap.Logger) *Service {
	if pub == nil {
		pub = events.Nop{Log: log}
	}
	return &Service{repo: repo, events: pub, log: log, now: time.Now}
}

// Add stamps rec with the owner and stores it. A nil rec stores an empty
// entry.
func (s *Service) Add(ctx context.Context, owner session.Identity, rec *Record) error {
	if rec == nil {
		rec = NewRecord()
	}
	Stamp(rec, owner)
	if err := s.repo.Insert(ctx, rec); err != nil {
		return err
	}

	s.publish(ctx, kafka.TopicTripAdded, owner.UserID, events.TripAddedEvent{
		UserID:  owner.UserID,
		Email:   owner.Email,
		AddedAt: s.now().UTC().Format(time.RFC3339),
	})
	return nil
}

// Import normalizes an upload, stamps every record and stores the batch.
// It returns the number of records inserted.
func (s *Service) Import(ctx context.Context, owner session.Identity, u Upload) (int, error) {
	src, recs, err := Normalize(u)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	for _, rec := range recs {
		Stamp(rec, owner)
	}
	if err := s.repo.InsertMany(ctx, recs); err != nil {
		return 0, err
	}

	s.log.Info("trips imported",
		zap.String("user_id", owner.UserID),
		zap.String("source", string(src)),
		zap.Int("count", len(recs)))
	s.publish(ctx, kafka.TopicTripsImported, owner.UserID, events.TripsImportedEvent{
		UserID:     owner.UserID,
		Email:      owner.Email,
		Source:     string(src),
		Count:      len(recs),
		ImportedAt: s.now().UTC().Format(time.RFC3339),
	})
	return len(recs), nil
}

// List returns the owner's records in insertion order.
func (s *Service) List(ctx context.Context, owner session.Identity) ([]*Record, error) {
	recs, err := s.repo.ListByOwner(ctx, owner.UserID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*Record{}
	}
	return recs, nil
}

// publish never fails the write that triggered it.
func (s *Service) publish(ctx context.Context, topic, key string, ev any) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, topic, key, ev); err != nil {
		s.log.Warn("failed to publish event", zap.String("topic", topic), zap.Error(err))
		return
	}
	s.log.Debug("published event", zap.String("topic", topic), zap.String("key", key))
}
