// Package testfixtures provides deterministic clocks, identifier
// generators and directory fixtures for tests.
package testfixtures

import (
	"time"

	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/remote"
)

// ReferenceTime is the shared instant fixtures are anchored to.
func ReferenceTime() time.Time {
	return time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
}

// NodeFixture returns a registry entry for the in-memory node.
func NodeFixture(id string) remote.Node {
	return remote.Node{
		ID:            id,
		Address:       "memory://" + id,
		AdminLogin:    "bridge-admin",
		AdminPassword: "admin-secret",
	}
}

// UserFixture returns a personal account homed on the given node.
func UserFixture(node, local, username, displayName string) directory.Account {
	return directory.Account{
		UniqueID:    node + ":" + local,
		Username:    username,
		Kind:        directory.KindUser,
		DisplayName: displayName,
		Email:       username + "@example.edu",
	}
}

// ResourceFixture returns a resource account delegated to ownerUsername.
func ResourceFixture(node, local, name, ownerUsername string) directory.Account {
	return directory.Account{
		UniqueID:      node + ":" + local,
		Username:      name,
		Kind:          directory.KindResource,
		DisplayName:   name,
		OwnerUsername: ownerUsername,
		ResourceName:  name,
	}
}
