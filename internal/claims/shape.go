package claims

import (
	"fmt"
	"strings"
)

// ClaimShape decide dónde se escriben los roles del principal en el access token.
//
// Consumidores conocidos:
//   - ShapeFlat: verificadores que leen "roles" top-level.
//   - ShapeRealmAccess: adaptadores estilo Keycloak (realm_access.roles).
//   - ShapeResourceAccess: resource servers que leen resource_access.<client>.roles.
//   - ShapeAll: los tres a la vez; es el default porque authz.Mapper y los
//     distintos resource servers leen ubicaciones distintas.
type ClaimShape int

const (
	ShapeAll ClaimShape = iota
	ShapeFlat
	ShapeRealmAccess
	ShapeResourceAccess
)

func (s ClaimShape) String() string {
	switch s {
	case ShapeFlat:
		return "flat"
	case ShapeRealmAccess:
		return "realm_access"
	case ShapeResourceAccess:
		return "resource_access"
	default:
		return "all"
	}
}

func (s ClaimShape) flat() bool     { return s == ShapeAll || s == ShapeFlat }
func (s ClaimShape) realm() bool    { return s == ShapeAll || s == ShapeRealmAccess }
func (s ClaimShape) resource() bool { return s == ShapeAll || s == ShapeResourceAccess }

// ParseClaimShape acepta flat | realm_access | resource_access | all ("" = all).
func ParseClaimShape(v string) (ClaimShape, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all":
		return ShapeAll, nil
	case "flat", "roles":
		return ShapeFlat, nil
	case "realm_access", "realm":
		return ShapeRealmAccess, nil
	case "resource_access", "resource":
		return ShapeResourceAccess, nil
	default:
		return ShapeAll, fmt.Errorf("claims: unknown claim shape %q", v)
	}
}
