// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tomtom215/honeytrace/internal/models"
)

// setupStore creates an in-memory store for testing.
func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertIdentity(ctx context.Context, t *testing.T, is *IdentityStore, id string) *models.Identity {
	t.Helper()
	identity := &models.Identity{
		IdentityID:   id,
		CreateTime:   1700000000,
		OwnerAccount: "123456789012",
		Occupancy:    1,
	}
	if err := is.InsertClaimed(ctx, identity); err != nil {
		t.Fatalf("InsertClaimed(%s): %v", id, err)
	}
	return identity
}

func TestInsertClaimedAndGet(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	want := insertIdentity(ctx, t, is, "user-a")

	got, err := is.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.IdentityID != want.IdentityID || got.Occupancy != 1 || got.OwnerAccount != want.OwnerAccount {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestInsertClaimedRejectsWrongOccupancy(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	err := is.InsertClaimed(ctx, &models.Identity{IdentityID: "user-a", Occupancy: 0})
	if err == nil {
		t.Fatal("expected error for occupancy 0 insert")
	}
}

func TestInsertClaimedDuplicateConflicts(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	insertIdentity(ctx, t, is, "user-a")
	err := is.InsertClaimed(ctx, &models.Identity{IdentityID: "user-a", Occupancy: 1})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate insert: got %v, want ErrConflict", err)
	}
}

func TestClaimSharedPacksPartialIdentity(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	insertIdentity(ctx, t, is, "user-a")

	claimed, err := is.ClaimShared(ctx)
	if err != nil {
		t.Fatalf("ClaimShared: %v", err)
	}
	if claimed.IdentityID != "user-a" || claimed.Occupancy != 2 {
		t.Errorf("claimed = %+v, want user-a at occupancy 2", claimed)
	}

	// Identity is now full; a second claim finds no candidate.
	if _, err := is.ClaimShared(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("claim on full pool: got %v, want ErrNotFound", err)
	}
}

func TestClaimSharedEmptyPool(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	if _, err := is.ClaimShared(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestReleaseDecrementsAndDestroysAtZero(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	insertIdentity(ctx, t, is, "user-a")
	if _, err := is.ClaimShared(ctx); err != nil {
		t.Fatalf("ClaimShared: %v", err)
	}

	// 2 -> 1: record survives.
	destroyed, err := is.Release(ctx, "user-a")
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if destroyed {
		t.Error("destroyed at occupancy 1")
	}
	got, err := is.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("Get after release: %v", err)
	}
	if got.Occupancy != 1 {
		t.Errorf("occupancy = %d, want 1", got.Occupancy)
	}

	// 1 -> 0: record removed.
	destroyed, err = is.Release(ctx, "user-a")
	if err != nil {
		t.Fatalf("Release to zero: %v", err)
	}
	if !destroyed {
		t.Error("expected destroyed at occupancy 0")
	}
	if _, err := is.Get(ctx, "user-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("identity persisted at occupancy 0: %v", err)
	}

	// Releasing again: the record is gone, which the pool treats as an
	// already-completed release.
	if _, err := is.Release(ctx, "user-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("double release: got %v, want ErrNotFound", err)
	}
}

func TestReleaseBindingIsIdempotentPerToken(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	is := s.Identities()

	insertIdentity(ctx, t, is, "user-a")
	if _, err := is.ClaimShared(ctx); err != nil {
		t.Fatalf("ClaimShared: %v", err)
	}
	for _, akid := range []string{"AKIAAAAA", "AKIABBBB"} {
		if err := s.Tokens().Put(ctx, &models.HoneyToken{AccessKeyID: akid, IdentityID: "user-a", Active: true}); err != nil {
			t.Fatalf("Put(%s): %v", akid, err)
		}
	}

	destroyed, already, err := is.ReleaseBinding(ctx, "AKIAAAAA")
	if err != nil {
		t.Fatalf("ReleaseBinding: %v", err)
	}
	if destroyed || already {
		t.Errorf("destroyed=%v already=%v, want false/false", destroyed, already)
	}

	// The same token released again is a no-op, not a second decrement.
	destroyed, already, err = is.ReleaseBinding(ctx, "AKIAAAAA")
	if err != nil {
		t.Fatalf("repeat ReleaseBinding: %v", err)
	}
	if destroyed || !already {
		t.Errorf("destroyed=%v already=%v, want false/true", destroyed, already)
	}
	got, err := is.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Occupancy != 1 {
		t.Errorf("occupancy = %d after repeated release, want 1", got.Occupancy)
	}

	// The other token's release is the one that takes the identity down.
	destroyed, already, err = is.ReleaseBinding(ctx, "AKIABBBB")
	if err != nil {
		t.Fatalf("ReleaseBinding(AKIABBBB): %v", err)
	}
	if !destroyed || already {
		t.Errorf("destroyed=%v already=%v, want true/false", destroyed, already)
	}
	if _, err := is.Get(ctx, "user-a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("identity persisted at occupancy 0: %v", err)
	}
}

func TestReleaseBindingUnknownToken(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	if _, _, err := is.ReleaseBinding(ctx, "AKIAGHOST"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestReleaseUnknownIdentity(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	if _, err := is.Release(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// TestOccupancyNeverExceedsCap drives a mixed acquire/release sequence and
// checks the pool invariants: occupancy stays in [1, 2] for every stored
// identity, and no identity survives at zero.
func TestOccupancyNeverExceedsCap(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	insertIdentity(ctx, t, is, "user-a")
	insertIdentity(ctx, t, is, "user-b")

	for i := 0; i < 2; i++ {
		if _, err := is.ClaimShared(ctx); err != nil {
			t.Fatalf("ClaimShared %d: %v", i, err)
		}
	}
	// Both identities are full now.
	if _, err := is.ClaimShared(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("claim past cap: got %v, want ErrNotFound", err)
	}

	identities, err := is.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(identities) != 2 {
		t.Fatalf("identity count = %d, want 2", len(identities))
	}
	for _, identity := range identities {
		if identity.Occupancy < 1 || identity.Occupancy > models.MaxTokensPerIdentity {
			t.Errorf("identity %s occupancy = %d, outside [1,%d]",
				identity.IdentityID, identity.Occupancy, models.MaxTokensPerIdentity)
		}
	}
}

// TestConcurrentClaims races claimers over a single free slot. At most one
// may win; the rest see ErrConflict, ErrNotFound, or ErrCapacityExceeded,
// never a third token on one identity.
func TestConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	is := setupStore(t).Identities()

	insertIdentity(ctx, t, is, "user-a")

	const claimers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := is.ClaimShared(ctx)
			switch {
			case err == nil:
				mu.Lock()
				wins++
				mu.Unlock()
			case errors.Is(err, ErrConflict),
				errors.Is(err, ErrNotFound),
				errors.Is(err, ErrCapacityExceeded):
				// Lost the race.
			default:
				t.Errorf("unexpected claim error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins > 1 {
		t.Errorf("wins = %d, want at most 1", wins)
	}

	got, err := is.Get(ctx, "user-a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Occupancy > models.MaxTokensPerIdentity {
		t.Errorf("occupancy = %d, exceeds cap", got.Occupancy)
	}
}
