package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shopcart/apiserver/internal/store"
	"github.com/shopcart/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserRepo struct {
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int]types.User), nextID: 1}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	user, ok := f.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = f.nextID
	f.nextID++
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	if _, ok := f.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	users := make([]types.User, 0, len(f.users))
	for _, user := range f.users {
		users = append(users, user)
	}
	return users, nil
}

type fakeStorage struct {
	objects map[string][]byte
	deleted []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func TestRegisterHashesPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newFakeStorage())

	user, err := svc.Register(context.Background(), "Jane Doe", "jane@example.com", "0123", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.PasswordHash == "s3cret" || user.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")); err != nil {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newFakeStorage())

	if _, err := svc.Register(context.Background(), "Jane", "jane@example.com", "", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "Other Jane", "jane@example.com", "", "pw2"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newFakeStorage())
	if _, err := svc.Register(context.Background(), "Jane", "jane@example.com", "", "s3cret"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "jane@example.com", "s3cret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "jane@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "s3cret"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown email, got %v", err)
	}
}

func TestUpdateProfileLeavesAbsentFieldsUnchanged(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newFakeStorage())
	registered, err := svc.Register(context.Background(), "Jane", "jane@example.com", "0123", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	phone := "0999"
	updated, err := svc.UpdateProfile(context.Background(), registered.ID, UserUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "0999" {
		t.Fatalf("expected phone 0999, got %q", updated.Phone)
	}
	if updated.FullName != "Jane" || updated.Email != "jane@example.com" {
		t.Fatalf("untouched fields changed: %+v", updated)
	}
	if updated.PasswordHash != registered.PasswordHash {
		t.Fatal("password hash changed without a password in the update")
	}
}

func TestUpdateProfileRehashesNewPassword(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, newFakeStorage())
	registered, err := svc.Register(context.Background(), "Jane", "jane@example.com", "", "old")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	password := "brand-new"
	updated, err := svc.UpdateProfile(context.Background(), registered.ID, UserUpdate{Password: &password})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("brand-new")); err != nil {
		t.Fatalf("new password does not verify: %v", err)
	}
}

func TestUploadAvatarReplacesStaleObject(t *testing.T) {
	repo := newFakeUserRepo()
	storage := newFakeStorage()
	svc := NewUserService(repo, storage)
	registered, err := svc.Register(context.Background(), "Jane", "jane@example.com", "", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	body := bytes.NewReader([]byte("png-bytes"))
	user, err := svc.UploadAvatar(context.Background(), registered.ID, "face.png", body, 9, "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	wantKey := fmt.Sprintf("avatars/user_%d.png", registered.ID)
	if user.AvatarPath != wantKey {
		t.Fatalf("avatar key = %q, want %q", user.AvatarPath, wantKey)
	}
	if _, ok := storage.objects[user.AvatarPath]; !ok {
		t.Fatal("avatar object not stored")
	}

	// A different extension moves the key and drops the old object.
	user, err = svc.UploadAvatar(context.Background(), registered.ID, "face.jpg", bytes.NewReader([]byte("jpg-bytes")), 9, "image/jpeg")
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !strings.HasSuffix(user.AvatarPath, ".jpg") {
		t.Fatalf("expected .jpg key, got %q", user.AvatarPath)
	}
	if len(storage.deleted) != 1 || !strings.HasSuffix(storage.deleted[0], ".png") {
		t.Fatalf("expected the stale .png object to be deleted, deletes: %v", storage.deleted)
	}
}

func TestUploadAvatarRejectsUnsafeNames(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), newFakeStorage())

	for _, name := range []string{"../../etc/passwd", "face.exe", ".hidden.png", "face"} {
		if _, err := svc.UploadAvatar(context.Background(), 1, name, bytes.NewReader(nil), 0, ""); !errors.Is(err, ErrUnsafeFilename) {
			t.Fatalf("name %q: expected ErrUnsafeFilename, got %v", name, err)
		}
	}
}

func TestDeleteAvatar(t *testing.T) {
	repo := newFakeUserRepo()
	storage := newFakeStorage()
	svc := NewUserService(repo, storage)
	registered, err := svc.Register(context.Background(), "Jane", "jane@example.com", "", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.DeleteAvatar(context.Background(), registered.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without an avatar, got %v", err)
	}

	if _, err := svc.UploadAvatar(context.Background(), registered.ID, "face.png", bytes.NewReader([]byte("x")), 1, "image/png"); err != nil {
		t.Fatalf("upload: %v", err)
	}
	user, err := svc.DeleteAvatar(context.Background(), registered.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if user.AvatarPath != "" {
		t.Fatalf("avatar path not cleared: %q", user.AvatarPath)
	}
	if len(storage.objects) != 0 {
		t.Fatalf("avatar object not removed: %v", storage.objects)
	}
}
