// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/honeytrace/internal/models"
)

func TestAPIKeyRoundTripKeepsSecretHash(t *testing.T) {
	ctx := context.Background()
	ks := setupStore(t).APIKeys()

	want := &models.APIKey{
		KeyID:       "key-1",
		SecretHash:  "c2FsdGVkaGFzaA==",
		CreateTime:  1700000000,
		Active:      true,
		Admin:       true,
		Description: "bootstrap admin",
	}
	if err := ks.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ks.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	// models.APIKey excludes SecretHash from JSON; the store must still
	// persist it.
	if got.SecretHash != want.SecretHash {
		t.Errorf("SecretHash = %q, want %q", got.SecretHash, want.SecretHash)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestAPIKeyDeleteAndList(t *testing.T) {
	ctx := context.Background()
	ks := setupStore(t).APIKeys()

	for _, id := range []string{"key-1", "key-2", "key-3"} {
		if err := ks.Put(ctx, &models.APIKey{KeyID: id, Active: true}); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}

	if err := ks.Delete(ctx, "key-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	keys, err := ks.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("List returned %d keys, want 2", len(keys))
	}

	if _, err := ks.Get(ctx, "key-2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted key still readable: %v", err)
	}
}
