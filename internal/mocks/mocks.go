// Package mocks provides testify mocks for external collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// RoleManager is a mock for roster.RoleManager.
type RoleManager struct {
	mock.Mock
}

func (m *RoleManager) GrantRole(ctx context.Context, memberID, roleName string) error {
	args := m.Called(ctx, memberID, roleName)
	return args.Error(0)
}

func (m *RoleManager) RevokeRolesByPrefix(ctx context.Context, memberID string, prefixes ...string) error {
	args := m.Called(ctx, memberID, prefixes)
	return args.Error(0)
}
