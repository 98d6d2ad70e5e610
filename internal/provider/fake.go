// Honeytrace - Cloud Honeytoken Intrusion Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/honeytrace

package provider

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory IdentityProvider for tests. Failures are injected
// per operation name via FailNext.
type Fake struct {
	mu sync.Mutex

	users    map[string]bool            // username -> in group
	keys     map[string]map[string]bool // username -> access key IDs
	nextKey  int
	failures map[string]error

	// Account is the caller account ID returned by CallerAccount.
	Account string
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		users:    make(map[string]bool),
		keys:     make(map[string]map[string]bool),
		failures: make(map[string]error),
		Account:  "123456789012",
	}
}

// FailNext makes the next call to the named operation return err.
// Operation names: CreateUser, DeleteUser, AddUserToGroup,
// RemoveUserFromGroup, CreateAccessKey, DeleteAccessKey, CallerAccount.
func (f *Fake) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

func (f *Fake) takeFailure(op string) error {
	if err, ok := f.failures[op]; ok {
		delete(f.failures, op)
		return err
	}
	return nil
}

// UserCount returns the number of live principals.
func (f *Fake) UserCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// KeyCount returns the number of live access keys for a user.
func (f *Fake) KeyCount(username string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.keys[username])
}

// HasUser reports whether a principal exists.
func (f *Fake) HasUser(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.users[username]
	return ok
}

func (f *Fake) CreateUser(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateUser"); err != nil {
		return err
	}
	f.users[username] = false
	f.keys[username] = make(map[string]bool)
	return nil
}

func (f *Fake) DeleteUser(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("DeleteUser"); err != nil {
		return err
	}
	if _, ok := f.users[username]; !ok {
		return ErrNotFound
	}
	delete(f.users, username)
	delete(f.keys, username)
	return nil
}

func (f *Fake) AddUserToGroup(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("AddUserToGroup"); err != nil {
		return err
	}
	if _, ok := f.users[username]; !ok {
		return ErrNotFound
	}
	f.users[username] = true
	return nil
}

func (f *Fake) RemoveUserFromGroup(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("RemoveUserFromGroup"); err != nil {
		return err
	}
	inGroup, ok := f.users[username]
	if !ok || !inGroup {
		return ErrNotFound
	}
	f.users[username] = false
	return nil
}

func (f *Fake) CreateAccessKey(ctx context.Context, username string) (*AccessKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CreateAccessKey"); err != nil {
		return nil, err
	}
	if _, ok := f.users[username]; !ok {
		return nil, ErrNotFound
	}
	f.nextKey++
	key := &AccessKey{
		AccessKeyID:     fmt.Sprintf("AKIAFAKE%012d", f.nextKey),
		SecretAccessKey: fmt.Sprintf("secret-%d", f.nextKey),
	}
	f.keys[username][key.AccessKeyID] = true
	return key, nil
}

func (f *Fake) DeleteAccessKey(ctx context.Context, username, accessKeyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("DeleteAccessKey"); err != nil {
		return err
	}
	keys, ok := f.keys[username]
	if !ok {
		return ErrNotFound
	}
	if _, ok := keys[accessKeyID]; !ok {
		return ErrNotFound
	}
	delete(keys, accessKeyID)
	return nil
}

func (f *Fake) CallerAccount(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure("CallerAccount"); err != nil {
		return "", err
	}
	return f.Account, nil
}
