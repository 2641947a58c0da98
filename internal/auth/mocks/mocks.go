// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Specz Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/specz/specz/internal/auth"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t TestingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// MockUserRepository mocks auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t TestingT) *MockUserRepository {
	m := &MockUserRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

// MockSessionRepository mocks auth.SessionRepository.
type MockSessionRepository struct {
	mock.Mock
}

// NewMockSessionRepository creates a mock that asserts its expectations on cleanup.
func NewMockSessionRepository(t TestingT) *MockSessionRepository {
	m := &MockSessionRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockSessionRepository) Create(ctx context.Context, session *auth.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) GetWithUser(ctx context.Context, id string) (*auth.Session, *auth.User, error) {
	args := m.Called(ctx, id)
	session, _ := args.Get(0).(*auth.Session)
	user, _ := args.Get(1).(*auth.User)
	return session, user, args.Error(2)
}

func (m *MockSessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockMagicLinkRepository mocks auth.MagicLinkRepository.
type MockMagicLinkRepository struct {
	mock.Mock
}

// NewMockMagicLinkRepository creates a mock that asserts its expectations on cleanup.
func NewMockMagicLinkRepository(t TestingT) *MockMagicLinkRepository {
	m := &MockMagicLinkRepository{}
	register(&m.Mock, t)
	return m
}

func (m *MockMagicLinkRepository) Replace(ctx context.Context, link *auth.MagicLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockMagicLinkRepository) Consume(ctx context.Context, id string, now time.Time) (*auth.MagicLink, error) {
	args := m.Called(ctx, id, now)
	link, _ := args.Get(0).(*auth.MagicLink)
	return link, args.Error(1)
}

func (m *MockMagicLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher mocks auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	register(&m.Mock, t)
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// MockMailer mocks auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a mock that asserts its expectations on cleanup.
func NewMockMailer(t TestingT) *MockMailer {
	m := &MockMailer{}
	register(&m.Mock, t)
	return m
}

func (m *MockMailer) Send(ctx context.Context, msg auth.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockRecorder mocks auth.Recorder.
type MockRecorder struct {
	mock.Mock
}

// NewMockRecorder creates a mock that asserts its expectations on cleanup.
func NewMockRecorder(t TestingT) *MockRecorder {
	m := &MockRecorder{}
	register(&m.Mock, t)
	return m
}

func (m *MockRecorder) RecordSignIn(method, outcome string) { m.Called(method, outcome) }
func (m *MockRecorder) RecordSession(event string)         { m.Called(event) }
func (m *MockRecorder) RecordMagicLink(event string)       { m.Called(event) }
func (m *MockRecorder) RecordSwept(kind string, n int64)   { m.Called(kind, n) }

var (
	_ auth.UserRepository      = (*MockUserRepository)(nil)
	_ auth.SessionRepository   = (*MockSessionRepository)(nil)
	_ auth.MagicLinkRepository = (*MockMagicLinkRepository)(nil)
	_ auth.PasswordHasher      = (*MockPasswordHasher)(nil)
	_ auth.Mailer              = (*MockMailer)(nil)
	_ auth.Recorder            = (*MockRecorder)(nil)
)
