// Package directory models calendar accounts and their lookup store. The
// upstream identity system is LDAP-like; the bridge keeps a local mirror of
// the handful of attributes it branches on.
package directory

import (
	"fmt"
	"strings"
)

// Kind distinguishes personal accounts from delegate resources.
type Kind string

const (
	KindUser     Kind = "user"
	KindResource Kind = "resource"
)

// Well-known attribute keys. Only these are given typed accessors; every
// other directory attribute rides along in the Attributes map untyped.
const (
	// AttrLogin is the stored calendar login identity for user accounts.
	AttrLogin = "calendar-login"
	// AttrGUID caches the remote store's GUID for the account.
	AttrGUID = "calendar-guid"
)

// invalidEmailDomain marks addresses synthesized for resources the
// directory has no real address for.
const invalidEmailDomain = "@email.invalid"

// Account is one calendar account record. UniqueID is composite
// "node:local-id"; its node prefix is the sharding key deciding which
// remote node serves the account.
type Account struct {
	UniqueID    string
	Username    string
	Kind        Kind
	DisplayName string
	Email       string
	// OwnerUsername and ResourceName are set only for resource accounts.
	OwnerUsername string
	ResourceName  string
	Attributes    map[string]string
}

// NodeID returns the node prefix of the unique ID, or "" when the ID is not
// composite.
func (a Account) NodeID() string {
	node, _, ok := strings.Cut(a.UniqueID, ":")
	if !ok {
		return ""
	}
	return node
}

// LocalID returns the node-local portion of the unique ID.
func (a Account) LocalID() string {
	_, local, _ := strings.Cut(a.UniqueID, ":")
	return local
}

// LoginID returns the identity string the remote store expects when
// switching a session to this account. Resource accounts have no stored
// login; theirs is synthesized from the resource name and node id.
func (a Account) LoginID() string {
	if a.Kind == KindResource {
		return fmt.Sprintf("?/RS=%s/ND=%s/", a.ResourceName, a.NodeID())
	}
	if login := a.Attributes[AttrLogin]; login != "" {
		return login
	}
	return a.Username
}

// GUID returns the cached remote GUID attribute, or "".
func (a Account) GUID() string {
	return a.Attributes[AttrGUID]
}

// EmailAddress returns the directory email. Resource accounts without one
// fall back to a synthesized address derived from the cached GUID, matching
// what the remote store records for them.
func (a Account) EmailAddress() string {
	if a.Email != "" {
		return a.Email
	}
	if a.Kind == KindResource {
		if guid := a.GUID(); guid != "" {
			return guid + invalidEmailDomain
		}
	}
	return ""
}

// Name returns the display name used for attendee CN matching. Resources
// display as their resource name.
func (a Account) Name() string {
	if a.Kind == KindResource && a.ResourceName != "" {
		return a.ResourceName
	}
	return a.DisplayName
}

// Eligible reports whether the account can be scheduled against: it must be
// node-addressed and have a usable (non-synthesized) email.
func (a Account) Eligible() bool {
	if a.NodeID() == "" {
		return false
	}
	email := a.EmailAddress()
	return email != "" && !strings.HasSuffix(email, invalidEmailDomain)
}

// SamePerson reports whether two accounts resolve to the same identity.
func (a Account) SamePerson(other Account) bool {
	return a.UniqueID != "" && a.UniqueID == other.UniqueID
}
