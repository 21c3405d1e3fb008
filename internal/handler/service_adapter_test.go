package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/studentms/internal/auth"
	"github.com/hitoshi/studentms/internal/model"
)

type mockAuthRecorder struct {
	logins        []bool
	registrations []string
}

func (m *mockAuthRecorder) RecordLogin(success bool)       { m.logins = append(m.logins, success) }
func (m *mockAuthRecorder) RecordRegistration(role string) { m.registrations = append(m.registrations, role) }

type stubCredentialStore struct {
	users map[string]*model.User
	err   error
}

func (s *stubCredentialStore) Create(_ context.Context, input model.NewUser) (*model.User, error) {
	u := &model.User{ID: "id-" + input.Email, Email: input.Email, Role: input.Role, PasswordHash: input.Password}
	s.users[input.Email] = u
	return u, nil
}

func (s *stubCredentialStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.users[email], nil
}

func (s *stubCredentialStore) VerifyPassword(u *model.User, candidate string) bool {
	return u.PasswordHash == candidate
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, error) { return "tok-" + userID, nil }

func TestAuthServiceAdapter_RecordsOutcomes(t *testing.T) {
	store := &stubCredentialStore{users: map[string]*model.User{}}
	recorder := &mockAuthRecorder{}
	adapter := NewAuthServiceAdapter(auth.NewService(store, stubIssuer{}, ""), recorder)
	ctx := context.Background()

	if _, err := adapter.Register(ctx, auth.RegisterInput{FullName: "A", Email: "a@x.com", Password: "p1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := adapter.Register(ctx, auth.RegisterInput{FullName: "B", Email: "b@x.com", Password: "p1", Role: model.RoleAdmin}); err == nil {
		t.Fatal("admin registration without secret should fail")
	}
	if len(recorder.registrations) != 1 || recorder.registrations[0] != "student" {
		t.Errorf("registrations = %v", recorder.registrations)
	}

	if _, err := adapter.Login(ctx, "a@x.com", "p1"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := adapter.Login(ctx, "a@x.com", "wrong"); err == nil {
		t.Fatal("wrong password should fail")
	}
	if len(recorder.logins) != 2 || !recorder.logins[0] || recorder.logins[1] {
		t.Errorf("logins = %v, want [true false]", recorder.logins)
	}
}

// ストア障害は認証失敗として計上しない
func TestAuthServiceAdapter_InternalErrorNotCounted(t *testing.T) {
	store := &stubCredentialStore{users: map[string]*model.User{}, err: errors.New("connection refused")}
	recorder := &mockAuthRecorder{}
	adapter := NewAuthServiceAdapter(auth.NewService(store, stubIssuer{}, ""), recorder)

	if _, err := adapter.Login(context.Background(), "a@x.com", "p1"); err == nil {
		t.Fatal("expected error")
	}
	if len(recorder.logins) != 0 {
		t.Errorf("logins = %v, want none", recorder.logins)
	}
}
