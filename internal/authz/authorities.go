// Package authz es el lado resource server: convierte claims ya verificados
// en authorities y protege handlers con ellas.
package authz

import (
	"fmt"
	"sort"
	"strings"
)

const (
	RolePrefix  = "ROLE_"
	GroupPrefix = "GROUP_"
	ScopePrefix = "SCOPE_"
)

// RoleCase define cómo se escriben los roles de realm_access antes del prefijo.
type RoleCase int

const (
	// AsIs deja los roles de realm tal como vienen en el token.
	AsIs RoleCase = iota
	// Upper pasa los roles de realm a mayúsculas (ROLE_admin -> ROLE_ADMIN).
	Upper
)

func (c RoleCase) String() string {
	if c == Upper {
		return "upper"
	}
	return "as_is"
}

// ParseRoleCase acepta "as_is" (default) y "upper".
func ParseRoleCase(s string) (RoleCase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "as_is", "asis":
		return AsIs, nil
	case "upper":
		return Upper, nil
	}
	return AsIs, fmt.Errorf("authz: unknown realm role case %q", s)
}

// Authorities es el set de authorities otorgadas.
type Authorities map[string]struct{}

func (a Authorities) add(s string) {
	if s != "" {
		a[s] = struct{}{}
	}
}

func (a Authorities) Has(authority string) bool {
	_, ok := a[authority]
	return ok
}

// HasRole acepta "ADMIN" o "ROLE_ADMIN".
func (a Authorities) HasRole(role string) bool {
	return a.Has(roleAuthority(role))
}

func (a Authorities) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

// Sorted devuelve el set ordenado (logs, JSON).
func (a Authorities) Sorted() []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func roleAuthority(role string) string {
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}

// Mapper deriva authorities de los claims. ClientID elige qué entrada de
// resource_access cuenta; vacío usa el azp del token (o un aud único).
type Mapper struct {
	ClientID      string
	RealmRoleCase RoleCase
}

// Map une todas las fuentes presentes en c. Claims ausentes o mal formados
// no aportan nada.
func (m Mapper) Map(c map[string]any) Authorities {
	out := Authorities{}

	if ra, ok := c["realm_access"].(map[string]any); ok {
		for _, r := range stringList(ra["roles"]) {
			if m.RealmRoleCase == Upper {
				r = strings.ToUpper(r)
			}
			out.add(RolePrefix + r)
		}
	}

	if client := m.clientFor(c); client != "" {
		if res, ok := c["resource_access"].(map[string]any); ok {
			if entry, ok := res[client].(map[string]any); ok {
				for _, r := range stringList(entry["roles"]) {
					out.add(RolePrefix + r)
				}
			}
		}
	}

	for _, g := range stringList(c["groups"]) {
		out.add(GroupPrefix + g)
	}
	if scope, ok := c["scope"].(string); ok {
		for _, s := range strings.Fields(scope) {
			out.add(ScopePrefix + s)
		}
	}
	for _, r := range stringList(c["roles"]) {
		out.add(RolePrefix + r)
	}
	return out
}

func (m Mapper) clientFor(c map[string]any) string {
	if m.ClientID != "" {
		return m.ClientID
	}
	if azp, ok := c["azp"].(string); ok && azp != "" {
		return azp
	}
	switch aud := c["aud"].(type) {
	case string:
		return aud
	case []any:
		if len(aud) == 1 {
			s, _ := aud[0].(string)
			return s
		}
	case []string:
		if len(aud) == 1 {
			return aud[0]
		}
	}
	return ""
}

// stringList acepta []any (JSON decodificado) y []string (claims armados en
// proceso). Se saltean entradas vacías o que no son string.
func stringList(v any) []string {
	switch l := v.(type) {
	case []string:
		out := make([]string, 0, len(l))
		for _, s := range l {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(l))
		for _, x := range l {
			if s, ok := x.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
