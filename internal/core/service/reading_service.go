package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/utilityops/meter-api/internal/core/domain"
	"github.com/utilityops/meter-api/internal/core/policy"
	"github.com/utilityops/meter-api/internal/core/ports"
)

type readingService struct {
	meters   ports.MeterRepository
	readings ports.ReadingRepository
	users    ports.UserFinder
	log      zerolog.Logger
	now      func() time.Time
}

// NewReadingService returns a ReadingService that applies batch readings.
// users is consulted for every reading so that a submitter deleted or
// demoted after the batch was queued can no longer change meters.
func NewReadingService(meters ports.MeterRepository, readings ports.ReadingRepository, users ports.UserFinder, log zerolog.Logger) ports.ReadingService {
	return &readingService{meters: meters, readings: readings, users: users, log: log, now: time.Now}
}

// Process authorizes, validates and persists a single batch reading. The
// submitter is looked up again by email and authorized with its stored role,
// since the reading is applied after the request that queued it has returned.
func (s *readingService) Process(ctx context.Context, in ports.ReadingInput) error {
	submitter, err := s.submitter(ctx, in.RecordedBy)
	if err != nil {
		return fmt.Errorf("process reading: %w", err)
	}
	if _, err := policy.Authorize(submitter, policy.UpdateMeter); err != nil {
		return fmt.Errorf("process reading: %w", err)
	}

	current, err := s.meters.FindByEAN(ctx, in.EAN)
	if err != nil {
		return fmt.Errorf("process reading: %w", err)
	}

	reading := in.Reading
	_, err = applyMeterChange(ctx, s.meters, s.readings, s.log, current,
		ports.UpdateMeterInput{Reading: &reading},
		submitter.Email, domain.SourceBatch, s.now().UTC())
	if err != nil {
		return fmt.Errorf("process reading: %w (batch %s)", err, in.BatchID)
	}
	return nil
}

// submitter resolves the current state of the principal that queued a
// reading. A user that was removed, or whose email now belongs to a
// different account, is forbidden.
func (s *readingService) submitter(ctx context.Context, queued domain.Principal) (domain.Principal, error) {
	user, err := s.users.FindUserByEmail(ctx, queued.Email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Principal{}, fmt.Errorf("%w: submitter %s no longer exists", domain.ErrForbidden, queued.Email)
	}
	if err != nil {
		return domain.Principal{}, err
	}
	if user.ID != queued.UserID {
		return domain.Principal{}, fmt.Errorf("%w: submitter %s no longer exists", domain.ErrForbidden, queued.Email)
	}
	return domain.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
