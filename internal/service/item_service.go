package service

import (
	"context"
	"strings"

	"lendit/internal/database"
	"lendit/internal/models"

	"github.com/rs/zerolog"
)

// ItemCatalogStore is the slice of the store the item catalog needs.
type ItemCatalogStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	ListItemsByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error)
	SearchItems(ctx context.Context, text string) ([]*models.Item, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	GetItemRequestByID(ctx context.Context, id int64) (*models.ItemRequest, error)
}

// ItemService is the item catalog collaborator. The booking engine consumes
// it only through domain.ItemCatalog.
type ItemService struct {
	store  ItemCatalogStore
	logger *zerolog.Logger
}

func NewItemService(store ItemCatalogStore, logger *zerolog.Logger) *ItemService {
	return &ItemService{store: store, logger: logger}
}

func (s *ItemService) CreateItem(ctx context.Context, item *models.Item) error {
	exists, err := s.store.UserExists(ctx, item.OwnerID)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrUserNotFound
	}

	// An item listed in answer to a request must point at a real request.
	if item.RequestID != nil {
		if _, err := s.store.GetItemRequestByID(ctx, *item.RequestID); err != nil {
			return err
		}
	}

	if err := s.store.CreateItem(ctx, item); err != nil {
		return err
	}
	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", item.OwnerID).Msg("item created")
	return nil
}

func (s *ItemService) GetItem(ctx context.Context, id int64) (*models.Item, error) {
	return s.store.GetItemByID(ctx, id)
}

// UpdateItem lets only the owner change an item's fields, including the
// availability flag that gates new booking requests.
func (s *ItemService) UpdateItem(ctx context.Context, callerID int64, item *models.Item) error {
	current, err := s.store.GetItemByID(ctx, item.ID)
	if err != nil {
		return err
	}
	if current.OwnerID != callerID {
		return database.ErrForbidden
	}

	item.OwnerID = current.OwnerID
	return s.store.UpdateItem(ctx, item)
}

func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Item, error) {
	return s.store.ListItemsByOwner(ctx, ownerID)
}

// SearchItems matches available items by name or description. Blank search
// text returns an empty result without touching the store.
func (s *ItemService) SearchItems(ctx context.Context, text string) ([]*models.Item, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*models.Item{}, nil
	}
	return s.store.SearchItems(ctx, text)
}
