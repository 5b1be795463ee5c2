package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yarukoto/yarukoto/internal/model"
	"github.com/yarukoto/yarukoto/internal/repository"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (r *fakeUserRepo) Create(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dup := *user
	r.users[dup.ID] = &dup
	return nil
}

func (r *fakeUserRepo) ByID(id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	dup := *u
	return &dup, nil
}

func (r *fakeUserRepo) ByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			dup := *u
			return &dup, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	dup := *user
	r.users[dup.ID] = &dup
	return nil
}

func newTestAuthService() *AuthService {
	return NewAuthService(newFakeUserRepo(), "test-secret", time.Hour, false)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newTestAuthService()

	user, err := svc.Register("Someone@Example.COM", "a-long-enough-password", "Someone")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Email != "someone@example.com" {
		t.Errorf("email = %q, want normalized lowercase", user.Email)
	}

	got, err := svc.Login("someone@example.com", "a-long-enough-password")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("logged in as %s, want %s", got.ID, user.ID)
	}

	_, err = svc.Login("someone@example.com", "wrong-password-entirely")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.Register("dup@example.com", "a-long-enough-password", "First")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err = svc.Register("dup@example.com", "another-long-password", "Second")
	if !errors.Is(err, ErrEmailAlreadyExists) {
		t.Errorf("err = %v, want ErrEmailAlreadyExists", err)
	}
}

func TestAuthenticateOAuth_CreatesThenReuses(t *testing.T) {
	svc := newTestAuthService()

	first, err := svc.AuthenticateOAuth("oauth@example.com", "OAuth User", ptr("https://example.com/a.png"))
	if err != nil {
		t.Fatalf("AuthenticateOAuth: %v", err)
	}
	second, err := svc.AuthenticateOAuth("oauth@example.com", "OAuth User", ptr("https://example.com/b.png"))
	if err != nil {
		t.Fatalf("AuthenticateOAuth: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second login created a new user")
	}
	if second.AvatarURL == nil || *second.AvatarURL != "https://example.com/b.png" {
		t.Errorf("avatar not refreshed: %v", second.AvatarURL)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := newTestAuthService()

	user := &model.User{ID: "u1", Email: "jwt@example.com"}
	token, err := svc.GenerateJWT(user)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := svc.VerifyJWT(token)
	if err != nil {
		t.Fatalf("VerifyJWT: %v", err)
	}
	if claims["user_id"] != "u1" {
		t.Errorf("user_id claim = %v, want u1", claims["user_id"])
	}

	other := NewAuthService(newFakeUserRepo(), "different-secret", time.Hour, false)
	_, err = other.VerifyJWT(token)
	if err == nil {
		t.Error("token signed with another secret should not verify")
	}
}
