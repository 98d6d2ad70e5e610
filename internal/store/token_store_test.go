// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/honeytrace/internal/models"
)

func testToken(accessKeyID string) *models.HoneyToken {
	return &models.HoneyToken{
		AccessKeyID:     accessKeyID,
		SecretAccessKey: "secret-material",
		IdentityID:      "user-a",
		CreateTime:      1700000000,
		Active:          true,
		Location:        "ci pipeline",
		Description:     "planted in build logs",
	}
}

func TestTokenPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := setupStore(t).Tokens()

	want := testToken("AKIAEXAMPLE000000001")
	if err := ts.Put(ctx, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := ts.Get(ctx, want.AccessKeyID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestTokenGetMissing(t *testing.T) {
	ctx := context.Background()
	ts := setupStore(t).Tokens()

	if _, err := ts.Get(ctx, "AKIAMISSING"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestTokenDelete(t *testing.T) {
	ctx := context.Background()
	ts := setupStore(t).Tokens()

	tok := testToken("AKIAEXAMPLE000000001")
	if err := ts.Put(ctx, tok); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ts.Delete(ctx, tok.AccessKeyID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := ts.Get(ctx, tok.AccessKeyID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}

	// Deleting again is a no-op.
	if err := ts.Delete(ctx, tok.AccessKeyID); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestTokenListSpansPages(t *testing.T) {
	ctx := context.Background()
	ts := setupStore(t).Tokens()

	// More tokens than one scan batch to exercise paging.
	const count = scanPageSize + 25
	for i := 0; i < count; i++ {
		tok := testToken(fmt.Sprintf("AKIA%016d", i))
		if err := ts.Put(ctx, tok); err != nil {
			t.Fatalf("Put %d: %v", i, err)
		}
	}

	tokens, err := ts.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tokens) != count {
		t.Errorf("List returned %d tokens, want %d", len(tokens), count)
	}
}
