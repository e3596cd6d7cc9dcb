package service

import (
	"context"
	"strings"

	"lendit/internal/database"
	"lendit/internal/domain"
	"lendit/internal/events"
	"lendit/internal/models"

	"github.com/rs/zerolog"
)

// CommentStore is the slice of the store the review collaborator needs.
type CommentStore interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	ListCommentsByItem(ctx context.Context, itemID int64) ([]*models.Comment, error)
}

// CommentService attaches reviews to items. The only booking data it may
// consult is the RentalHistory answer: has this user completed a rental of
// this item. Positive answers are cached since a completed rental never
// un-completes.
type CommentService struct {
	store    CommentStore
	rentals  domain.RentalHistory
	cache    domain.EligibilityCache
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewCommentService(
	store CommentStore,
	rentals domain.RentalHistory,
	cache domain.EligibilityCache,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *CommentService {
	return &CommentService{
		store:    store,
		rentals:  rentals,
		cache:    cache,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *CommentService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, database.ErrEmptyComment
	}

	eligible, err := s.checkEligibility(ctx, authorID, itemID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, database.ErrNoCompletedRental
	}

	comment := &models.Comment{ItemID: itemID, AuthorID: authorID, Text: text}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		_ = s.eventBus.PublishJSON(events.EventCommentAdded, comment)
	}

	s.logger.Info().Int64("comment_id", comment.ID).Int64("item_id", itemID).Msg("comment created")
	return comment, nil
}

func (s *CommentService) ListByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	return s.store.ListCommentsByItem(ctx, itemID)
}

func (s *CommentService) checkEligibility(ctx context.Context, authorID, itemID int64) (bool, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCompletedRental(ctx, authorID, itemID)
		if err == nil && cached {
			return true, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("eligibility cache read failed")
		}
	}

	eligible, err := s.rentals.HasCompletedRental(ctx, authorID, itemID)
	if err != nil {
		return false, err
	}

	if eligible && s.cache != nil {
		if err := s.cache.SetCompletedRental(ctx, authorID, itemID); err != nil {
			s.logger.Warn().Err(err).Msg("eligibility cache write failed")
		}
	}
	return eligible, nil
}
