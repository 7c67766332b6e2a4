package services

import (
	"context"
	"fmt"
	"io"

	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	List(ctx context.Context) ([]types.User, error)
}

// ImageStorage is the subset of the storage API used for uploads.
type ImageStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// UserService encapsulates account use-cases.
type UserService struct {
	repo    UserRepository
	storage ImageStorage
}

func NewUserService(repo UserRepository, storage ImageStorage) *UserService {
	return &UserService{repo: repo, storage: storage}
}

// Register creates an account with a bcrypt password hash. A duplicate
// email surfaces as store.ErrConflict.
func (s *UserService) Register(ctx context.Context, fullName, email, phone, password string) (types.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.Create(ctx, types.User{
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hashed),
	})
}

// Authenticate verifies a login. Unknown emails surface as
// store.ErrNotFound; a wrong password as ErrInvalidCredentials. The
// bcrypt comparison is constant time.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (types.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return types.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// UserUpdate carries a partial profile update. Nil fields are left
// unchanged.
type UserUpdate struct {
	FullName *string
	Email    *string
	Phone    *string
	Password *string
}

// UpdateProfile applies a partial update to the user's record. A new
// password is re-hashed before storage.
func (s *UserService) UpdateProfile(ctx context.Context, id int, update UserUpdate) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.Phone != nil {
		user.Phone = *update.Phone
	}
	if update.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*update.Password), bcrypt.DefaultCost)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	return s.repo.Update(ctx, user)
}

// UploadAvatar stores the user's avatar under avatars/user_<id><ext> and
// records the key on the account, replacing any previous avatar.
func (s *UserService) UploadAvatar(ctx context.Context, userID int, filename string, r io.Reader, size int64, contentType string) (types.User, error) {
	if !SafeImageName(filename) {
		return types.User{}, ErrUnsafeFilename
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}

	key := fmt.Sprintf("avatars/user_%d%s", userID, ImageExtension(filename))
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return types.User{}, err
	}

	if user.AvatarPath != "" && user.AvatarPath != key {
		// Extension changed; drop the stale object.
		_ = s.storage.Delete(ctx, user.AvatarPath)
	}
	user.AvatarPath = key
	return s.repo.Update(ctx, user)
}

// DeleteAvatar removes the user's avatar object and clears the key.
// A user without an avatar surfaces as store.ErrNotFound.
func (s *UserService) DeleteAvatar(ctx context.Context, userID int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return types.User{}, err
	}
	if user.AvatarPath == "" {
		return types.User{}, store.ErrNotFound
	}
	if err := s.storage.Delete(ctx, user.AvatarPath); err != nil {
		return types.User{}, err
	}
	user.AvatarPath = ""
	return s.repo.Update(ctx, user)
}
