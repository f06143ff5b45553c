// Sensorgate - Authenticated Sensor Data Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sensorgate

package auth

import (
	"context"
	"sync"
)

// fakeUsers is an in-memory stand-in for the internal users service.
type fakeUsers struct {
	mu sync.Mutex

	tokens    map[string]int64
	emails    map[string]int64
	passwords map[int64]string

	err      error // returned by every call when set
	storeErr error

	stored      map[int64]string
	checkedHash string
	calls       int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		tokens:    map[string]int64{},
		emails:    map[string]int64{},
		passwords: map[int64]string{},
		stored:    map[int64]string{},
	}
}

func (f *fakeUsers) StoreToken(_ context.Context, userID int64, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored[userID] = token
	f.tokens[token] = userID
	return nil
}

func (f *fakeUsers) ResolveToken(_ context.Context, token string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return 0, errNotFoundForTest
	}
	return id, nil
}

func (f *fakeUsers) UserIDByEmail(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	id, ok := f.emails[email]
	if !ok {
		return 0, errNotFoundForTest
	}
	return id, nil
}

func (f *fakeUsers) CheckPassword(_ context.Context, userID int64, hashed string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.checkedHash = hashed
	if f.err != nil {
		return false, f.err
	}
	return f.passwords[userID] == hashed, nil
}

func (f *fakeUsers) CheckKey(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return key == "upstream-key", nil
}

func (f *fakeUsers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
