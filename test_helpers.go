package main

import (
	"context"
	"database/sql"
)

// MockDatabaseManager is a mock implementation of DatabaseManager for testing
type MockDatabaseManager struct {
	SetupFunc        func(ctx context.Context) error
	CloseFunc        func(ctx context.Context) error
	LoadFixturesFunc func(ctx context.Context, fixtures []Fixture) error
	GetDBFunc        func() *sql.DB

	// Track calls for verification
	SetupCalled        bool
	CloseCalled        bool
	LoadFixturesCalled bool
	GetDBCalled        bool
	LoadedFixtures     []Fixture
}

func (m *MockDatabaseManager) Setup(ctx context.Context) error {
	m.SetupCalled = true
	if m.SetupFunc != nil {
		return m.SetupFunc(ctx)
	}
	return nil
}

func (m *MockDatabaseManager) Close(ctx context.Context) error {
	m.CloseCalled = true
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx)
	}
	return nil
}

func (m *MockDatabaseManager) LoadFixtures(ctx context.Context, fixtures []Fixture) error {
	m.LoadFixturesCalled = true
	m.LoadedFixtures = fixtures
	if m.LoadFixturesFunc != nil {
		return m.LoadFixturesFunc(ctx, fixtures)
	}
	return nil
}

func (m *MockDatabaseManager) GetDB() *sql.DB {
	m.GetDBCalled = true
	if m.GetDBFunc != nil {
		return m.GetDBFunc()
	}
	return nil
}

// MockFixtureReader is a mock implementation of FixtureReader for testing
type MockFixtureReader struct {
	DiscoverFixturesFunc func(dir string) ([]Fixture, error)
}

func (m *MockFixtureReader) DiscoverFixtures(dir string) ([]Fixture, error) {
	if m.DiscoverFixturesFunc != nil {
		return m.DiscoverFixturesFunc(dir)
	}
	return []Fixture{}, nil
}
