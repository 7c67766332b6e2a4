package services

import (
	"context"
	"fmt"
	"io"

	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
)

// ItemRepository defines persistence operations for catalog items.
type ItemRepository interface {
	Get(ctx context.Context, id int) (types.Item, error)
	Create(ctx context.Context, item types.Item) (types.Item, error)
	Update(ctx context.Context, item types.Item) (types.Item, error)
	Delete(ctx context.Context, id int) error
	List(ctx context.Context) ([]types.Item, error)
}

// ItemService encapsulates catalog use-cases.
type ItemService struct {
	repo    ItemRepository
	storage ImageStorage
}

func NewItemService(repo ItemRepository, storage ImageStorage) *ItemService {
	return &ItemService{repo: repo, storage: storage}
}

func (s *ItemService) Get(ctx context.Context, id int) (types.Item, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a catalog item. A duplicate name surfaces as
// store.ErrConflict.
func (s *ItemService) Create(ctx context.Context, item types.Item) (types.Item, error) {
	return s.repo.Create(ctx, item)
}

// ItemUpdate carries a partial item update. Nil fields are left
// unchanged.
type ItemUpdate struct {
	Name        *string
	Price       *int64
	Description *string
}

func (s *ItemService) Update(ctx context.Context, id int, update ItemUpdate) (types.Item, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Item{}, err
	}

	if update.Name != nil {
		item.Name = *update.Name
	}
	if update.Price != nil {
		item.Price = *update.Price
	}
	if update.Description != nil {
		item.Description = *update.Description
	}

	return s.repo.Update(ctx, item)
}

// Delete removes an item and, best effort, its stored image.
func (s *ItemService) Delete(ctx context.Context, id int) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if item.ImagePath != "" {
		_ = s.storage.Delete(ctx, item.ImagePath)
	}
	return nil
}

func (s *ItemService) List(ctx context.Context) ([]types.Item, error) {
	return s.repo.List(ctx)
}

// AttachImage stores an image for the item under items/<id>/<name> and
// records the key, replacing any previous image object.
func (s *ItemService) AttachImage(ctx context.Context, itemID int, filename string, r io.Reader, size int64, contentType string) (types.Item, error) {
	if !SafeImageName(filename) {
		return types.Item{}, ErrUnsafeFilename
	}

	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return types.Item{}, err
	}

	key := fmt.Sprintf("items/%d/%s", itemID, filename)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.Item{}, err
	}

	if item.ImagePath != "" && item.ImagePath != key {
		_ = s.storage.Delete(ctx, item.ImagePath)
	}
	item.ImagePath = key
	return s.repo.Update(ctx, item)
}

// DetachImage removes the named image from the item. A name that does
// not match the item's current image surfaces as store.ErrNotFound.
func (s *ItemService) DetachImage(ctx context.Context, itemID int, imageName string) (types.Item, error) {
	if !SafeImageName(imageName) {
		return types.Item{}, ErrUnsafeFilename
	}

	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return types.Item{}, err
	}

	key := fmt.Sprintf("items/%d/%s", itemID, imageName)
	if item.ImagePath != key {
		return types.Item{}, store.ErrNotFound
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return types.Item{}, err
	}
	item.ImagePath = ""
	return s.repo.Update(ctx, item)
}
