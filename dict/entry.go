// Package dict holds the name dictionary: entries with their gender/role
// metadata, the per-context lookup index used by the proxy engine, and
// loaders for the on-disk dictionary formats (YAML and TSV dumps).
package dict

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Roles
// ---------------------------------------------------------------------------

// Role is the gender/narrative-position metadata of a name. Proxies are
// chosen from the pool partition of the same role so that pronoun agreement
// survives translation.
type Role int

const (
	RoleNeutral Role = iota
	RoleMainMale
	RoleMainFemale
	RoleSubMale
	RoleSubFemale
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleNeutral, RoleMainMale, RoleMainFemale, RoleSubMale, RoleSubFemale}

var roleNames = map[Role]string{
	RoleNeutral:    "neutral",
	RoleMainMale:   "main-male",
	RoleMainFemale: "main-female",
	RoleSubMale:    "sub-male",
	RoleSubFemale:  "sub-female",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole accepts "main-male", "MainMale", "main_male" and so on.
// An empty string is RoleNeutral.
func ParseRole(s string) (Role, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "", "neutral":
		return RoleNeutral, nil
	case "mainmale":
		return RoleMainMale, nil
	case "mainfemale":
		return RoleMainFemale, nil
	case "submale":
		return RoleSubMale, nil
	case "subfemale":
		return RoleSubFemale, nil
	}
	return RoleNeutral, fmt.Errorf("unknown role %q (valid: main-male, main-female, sub-male, sub-female, neutral)", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Entries
// ---------------------------------------------------------------------------

// Kind distinguishes name entries from suffix (honorific) entries.
type Kind int

const (
	KindName Kind = iota
	KindSuffix
)

func (k Kind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindSuffix:
		return "suffix"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "name":
		*k = KindName
	case "suffix":
		*k = KindSuffix
	default:
		return fmt.Errorf("unknown entry kind %q", b)
	}
	return nil
}

// Entry is one dictionary record usable by the proxy engine.
type Entry struct {
	// Source is the original-language form.
	Source string `json:"source"`
	// Target is the translated form.
	Target string `json:"target"`
	// Role is only meaningful for names; suffixes are always neutral.
	Role Role `json:"role"`
	// Context is the game/user scope the entry belongs to.
	Context string `json:"context"`
	Kind    Kind   `json:"kind"`
}
