package service

import (
	"context"
	"strings"

	"lendit/internal/database"
	"lendit/internal/models"

	"github.com/rs/zerolog"
)

// RequestStore is the slice of the store behind item requests.
type RequestStore interface {
	CreateItemRequest(ctx context.Context, request *models.ItemRequest) error
	GetItemRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error)
	ListRequestsByRequestor(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error)
	ListOtherRequests(ctx context.Context, requestorID int64) ([]*models.ItemRequest, error)
	ListItemsByRequest(ctx context.Context, requestID int64) ([]*models.Item, error)
	UserExists(ctx context.Context, id int64) (bool, error)
}

// RequestService manages item requests: wishes for items nobody has listed.
// Owners browse others' requests and answer them by listing items that
// reference the request.
type RequestService struct {
	store  RequestStore
	logger *zerolog.Logger
}

func NewRequestService(store RequestStore, logger *zerolog.Logger) *RequestService {
	return &RequestService{store: store, logger: logger}
}

func (s *RequestService) CreateRequest(ctx context.Context, requestorID int64, description string) (*models.ItemRequest, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, database.ErrEmptyDescription
	}

	exists, err := s.store.UserExists(ctx, requestorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	request := &models.ItemRequest{RequestorID: requestorID, Description: description}
	if err := s.store.CreateItemRequest(ctx, request); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("request_id", request.ID).Int64("requestor_id", requestorID).Msg("item request created")
	return request, nil
}

// GetRequest returns the request with the items listed in answer to it.
func (s *RequestService) GetRequest(ctx context.Context, callerID, requestID int64) (*models.ItemRequest, error) {
	exists, err := s.store.UserExists(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	request, err := s.store.GetItemRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, request)
}

// ListOwnRequests returns the caller's requests, newest first, each with its
// answering items.
func (s *RequestService) ListOwnRequests(ctx context.Context, callerID int64) ([]*models.ItemRequest, error) {
	exists, err := s.store.UserExists(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}

	requests, err := s.store.ListRequestsByRequestor(ctx, callerID)
	if err != nil {
		return nil, err
	}
	for i, request := range requests {
		if requests[i], err = s.withItems(ctx, request); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// ListOtherRequests returns everyone else's requests, newest first, without
// item expansion.
func (s *RequestService) ListOtherRequests(ctx context.Context, callerID int64) ([]*models.ItemRequest, error) {
	exists, err := s.store.UserExists(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, database.ErrUserNotFound
	}
	return s.store.ListOtherRequests(ctx, callerID)
}

func (s *RequestService) withItems(ctx context.Context, request *models.ItemRequest) (*models.ItemRequest, error) {
	items, err := s.store.ListItemsByRequest(ctx, request.ID)
	if err != nil {
		return nil, err
	}
	request.Items = items
	return request, nil
}
