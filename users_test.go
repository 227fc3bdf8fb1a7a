package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestCreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "  Alice ", " Alice@Example.com ", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	if user.ID == "" {
		t.Error("expected user id to be set")
	}
	if user.Name != "Alice" {
		t.Errorf("expected name 'Alice', got %q", user.Name)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", user.Email)
	}

	stored, err := store.UserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("UserByID() error: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored user, got nil")
	}
	if stored.PasswordHash != "hash" {
		t.Errorf("expected password hash 'hash', got %q", stored.PasswordHash)
	}
	if !stored.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", user.CreatedAt, stored.CreatedAt)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateUser(ctx, "Alice", "alice@example.com", "hash"); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}

	tests := []struct {
		name  string
		email string
	}{
		{"same email", "alice@example.com"},
		{"different case", "ALICE@example.com"},
		{"surrounding spaces", "  alice@example.com "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.CreateUser(ctx, "Someone Else", tt.email, "other-hash")
			if !errors.Is(err, ErrEmailExists) {
				t.Errorf("expected ErrEmailExists, got %v", err)
			}
		})
	}
}

func TestCreateUser_ConcurrentSameEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.CreateUser(ctx, fmt.Sprintf("User %d", i), "race@example.com", "hash")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var successes, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrEmailExists):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 successful signup, got %d", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func TestUserLookup_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user, err := store.UserByEmail(ctx, "nobody@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error: %v", err)
	}
	if user != nil {
		t.Error("expected nil for unknown email")
	}

	user, err = store.UserByID(ctx, "missing-id")
	if err != nil {
		t.Fatalf("UserByID() error: %v", err)
	}
	if user != nil {
		t.Error("expected nil for unknown id")
	}
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name      string
		upd       ProfileUpdate
		wantErr   error
		wantName  string
		wantEmail string
		wantBio   string
	}{
		{
			name:      "bio only",
			upd:       ProfileUpdate{Bio: strPtr("Gopher at heart")},
			wantName:  "Alice",
			wantEmail: "alice@example.com",
			wantBio:   "Gopher at heart",
		},
		{
			name:      "all fields",
			upd:       ProfileUpdate{Name: strPtr("Alicia"), Email: strPtr("Alicia@Example.com"), Bio: strPtr("hi")},
			wantName:  "Alicia",
			wantEmail: "alicia@example.com",
			wantBio:   "hi",
		},
		{
			name:      "empty name and email unchanged",
			upd:       ProfileUpdate{Name: strPtr(""), Email: strPtr("   ")},
			wantName:  "Alice",
			wantEmail: "alice@example.com",
			wantBio:   "",
		},
		{
			name:      "nothing to change",
			upd:       ProfileUpdate{},
			wantName:  "Alice",
			wantEmail: "alice@example.com",
		},
		{
			name:    "empty bio rejected",
			upd:     ProfileUpdate{Bio: strPtr("")},
			wantErr: ErrEmptyBio,
		},
		{
			name:    "whitespace bio rejected",
			upd:     ProfileUpdate{Name: strPtr("Changed"), Bio: strPtr("  \n\t")},
			wantErr: ErrEmptyBio,
		},
		{
			name:    "email taken",
			upd:     ProfileUpdate{Email: strPtr("bob@example.com")},
			wantErr: ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := setupTestStore(t)
			ctx := context.Background()

			alice, err := store.CreateUser(ctx, "Alice", "alice@example.com", "hash")
			if err != nil {
				t.Fatalf("creating alice: %v", err)
			}
			if _, err := store.CreateUser(ctx, "Bob", "bob@example.com", "hash"); err != nil {
				t.Fatalf("creating bob: %v", err)
			}

			got, err := store.UpdateProfile(ctx, alice.ID, tt.upd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				stored, _ := store.UserByID(ctx, alice.ID)
				if stored.Name != "Alice" || stored.Email != "alice@example.com" || stored.Bio != "" {
					t.Errorf("expected failed update to leave profile untouched, got %+v", stored)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateProfile() error: %v", err)
			}

			stored, err := store.UserByID(ctx, alice.ID)
			if err != nil {
				t.Fatalf("UserByID() error: %v", err)
			}
			for _, u := range []*User{got, stored} {
				if u.Name != tt.wantName {
					t.Errorf("expected name %q, got %q", tt.wantName, u.Name)
				}
				if u.Email != tt.wantEmail {
					t.Errorf("expected email %q, got %q", tt.wantEmail, u.Email)
				}
				if u.Bio != tt.wantBio {
					t.Errorf("expected bio %q, got %q", tt.wantBio, u.Bio)
				}
			}
		})
	}
}

func TestUpdateProfile_UnknownUser(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.UpdateProfile(context.Background(), "missing-id", ProfileUpdate{Bio: strPtr("hello")})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
