package domain

import "strings"

// Role is the single role an identity holds for its whole lifetime.
type Role string

const (
	RoleNone     Role = ""
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// roleAliases maps wire spellings onto canonical roles. The storefront
// registration form historically sent "user" for buyers.
var roleAliases = map[string]Role{
	"customer": RoleCustomer,
	"user":     RoleCustomer,
	"vendor":   RoleVendor,
	"admin":    RoleAdmin,
}

// ParseRole returns the canonical role for s and whether s names a known role.
func ParseRole(s string) (Role, bool) {
	r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleAdmin
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}

// UnmarshalText accepts aliases; unknown values are kept as-is so Valid can reject them.
func (r *Role) UnmarshalText(b []byte) error {
	if known, ok := ParseRole(string(b)); ok {
		*r = known
		return nil
	}
	*r = Role(b)
	return nil
}

// Identity is an authenticated marketplace user.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
}

// Valid reports whether the identity is structurally usable for a session.
func (i Identity) Valid() bool {
	return strings.TrimSpace(i.ID) != "" && i.Role.Valid()
}

// Credential is the opaque bearer token issued at login.
type Credential string

// Session pairs an identity with its credential. A nil *Session is the
// unauthenticated session; all methods are safe to call on nil.
type Session struct {
	Identity   Identity
	Credential Credential
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Credential != "" && s.Identity.Valid()
}

func (s *Session) Role() Role {
	if s == nil {
		return RoleNone
	}
	return s.Identity.Role
}

func (s *Session) ActorID() string {
	if s == nil {
		return ""
	}
	return s.Identity.ID
}

// Token returns the credential, or "" for the unauthenticated session.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	return string(s.Credential)
}
