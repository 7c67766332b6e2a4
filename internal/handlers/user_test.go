package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopcart/apiserver/types"
)

// doMultipart sends a multipart request with a single "image" file.
func (env *testEnv) doMultipart(t *testing.T, method, target, bearer, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(formFieldImage, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestGetProfile(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodGet, "/user", resp.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var user types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Fatalf("email = %q", user.Email)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatal("profile response mentions password")
	}
}

func TestUpdateProfilePartial(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodPut, "/user", resp.AccessToken, map[string]string{
		"phone": "0999",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	var user types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Phone != "0999" {
		t.Fatalf("phone = %q, want 0999", user.Phone)
	}
	if user.FullName != "Jane" || user.Email != "jane@example.com" {
		t.Fatalf("untouched fields changed: %+v", user)
	}
}

func TestUpdateProfileRejectsEmptyEmail(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodPut, "/user", resp.AccessToken, map[string]string{
		"email": "  ",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddressUpsertFlow(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{
		"state":  "Berlin",
		"city":   "Berlin",
		"street": "Unter den Linden",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first upsert: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{
		"address_detail": "3rd floor",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second upsert: status %d body %s", rec.Code, rec.Body.String())
	}
	var address types.Address
	if err := json.Unmarshal(rec.Body.Bytes(), &address); err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if address.AddressDetail != "3rd floor" || address.Street != "Unter den Linden" {
		t.Fatalf("unexpected address after update: %+v", address)
	}
}

func TestAddressUpsertIncomplete(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{
		"state": "Berlin",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAddressUpsertRejectsBlankingOnUpdate(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{
		"state":  "Berlin",
		"city":   "Berlin",
		"street": "Unter den Linden",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{
		"state":  "",
		"city":   "",
		"street": "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blanking update: status %d, want 400", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/user/address", resp.AccessToken, map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("re-read: status %d body %s", rec.Code, rec.Body.String())
	}
	var address types.Address
	if err := json.Unmarshal(rec.Body.Bytes(), &address); err != nil {
		t.Fatalf("decode address: %v", err)
	}
	if address.State != "Berlin" || address.City != "Berlin" || address.Street != "Unter den Linden" {
		t.Fatalf("address changed despite rejection: %+v", address)
	}
}

func TestAvatarLifecycle(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	// No avatar yet.
	if rec := env.do(t, http.MethodDelete, "/user/avatar", resp.AccessToken, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("delete without avatar: status %d, want 404", rec.Code)
	}

	rec := env.doMultipart(t, http.MethodPost, "/user/avatar", resp.AccessToken, "face.png", []byte("png-bytes"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status %d body %s", rec.Code, rec.Body.String())
	}
	var user types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.AvatarPath == "" {
		t.Fatal("avatar path not recorded")
	}

	if rec := env.do(t, http.MethodDelete, "/user/avatar", resp.AccessToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestAvatarRejectsDisallowedExtension(t *testing.T) {
	env := newTestEnv(t)
	resp := env.register(t, "Jane", "jane@example.com", "pw")

	rec := env.doMultipart(t, http.MethodPost, "/user/avatar", resp.AccessToken, "payload.exe", []byte("nope"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAdminListsUsersAndAddresses(t *testing.T) {
	env := newTestEnv(t)
	jane := env.register(t, "Jane", "jane@example.com", "pw")
	admin := env.registerAdmin(t, "admin@example.com")

	if rec := env.do(t, http.MethodPost, "/user/address", jane.AccessToken, map[string]string{
		"state": "Berlin", "city": "Berlin", "street": "Unter den Linden",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("seed address: status %d", rec.Code)
	}

	rec := env.do(t, http.MethodGet, "/admin/users", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list users: status %d", rec.Code)
	}
	var users []types.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}

	rec = env.do(t, http.MethodGet, "/admin/users/addresses", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list addresses: status %d", rec.Code)
	}
	var addresses []types.Address
	if err := json.Unmarshal(rec.Body.Bytes(), &addresses); err != nil {
		t.Fatalf("decode addresses: %v", err)
	}
	if len(addresses) != 1 {
		t.Fatalf("expected 1 address, got %d", len(addresses))
	}
}
