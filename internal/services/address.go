package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
)

// AddressRepository defines persistence operations for addresses.
type AddressRepository interface {
	GetByUserID(ctx context.Context, userID int) (types.Address, error)
	Create(ctx context.Context, address types.Address) (types.Address, error)
	Update(ctx context.Context, address types.Address) (types.Address, error)
	List(ctx context.Context) ([]types.Address, error)
}

// AddressService encapsulates address use-cases.
type AddressService struct {
	repo AddressRepository
}

func NewAddressService(repo AddressRepository) *AddressService {
	return &AddressService{repo: repo}
}

// AddressUpdate carries the POST /user/address payload. Nil fields are
// left unchanged on update; state, city and street are required and may
// never end up blank.
type AddressUpdate struct {
	State         *string
	City          *string
	Street        *string
	AddressDetail *string
}

// Upsert creates the caller's address on first use, otherwise applies a
// partial update. The returned bool is true when a new address was
// created.
func (s *AddressService) Upsert(ctx context.Context, userID int, update AddressUpdate) (types.Address, bool, error) {
	address, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return types.Address{}, false, err
		}
		created, err := s.create(ctx, userID, update)
		return created, true, err
	}

	// Present fields are validated before they are applied: state, city
	// and street stay required and may not be blanked; only the detail
	// line may be cleared.
	if update.State != nil {
		address.State = strings.TrimSpace(*update.State)
	}
	if update.City != nil {
		address.City = strings.TrimSpace(*update.City)
	}
	if update.Street != nil {
		address.Street = strings.TrimSpace(*update.Street)
	}
	if update.AddressDetail != nil {
		address.AddressDetail = strings.TrimSpace(*update.AddressDetail)
	}
	if address.State == "" || address.City == "" || address.Street == "" {
		return types.Address{}, false, ErrIncompleteAddress
	}

	updated, err := s.repo.Update(ctx, address)
	return updated, false, err
}

func (s *AddressService) create(ctx context.Context, userID int, update AddressUpdate) (types.Address, error) {
	address := types.Address{UserID: userID}
	if update.State != nil {
		address.State = strings.TrimSpace(*update.State)
	}
	if update.City != nil {
		address.City = strings.TrimSpace(*update.City)
	}
	if update.Street != nil {
		address.Street = strings.TrimSpace(*update.Street)
	}
	if update.AddressDetail != nil {
		address.AddressDetail = strings.TrimSpace(*update.AddressDetail)
	}
	if address.State == "" || address.City == "" || address.Street == "" {
		return types.Address{}, ErrIncompleteAddress
	}
	return s.repo.Create(ctx, address)
}

func (s *AddressService) List(ctx context.Context) ([]types.Address, error) {
	return s.repo.List(ctx)
}
