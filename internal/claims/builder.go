package claims

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL es la vida de access e ID tokens si no se configura otra.
const DefaultTTL = time.Hour

// AccessParams son los inputs de un access token además del principal.
type AccessParams struct {
	ClientID string
	Issuer   string
	Scope    string
	Now      time.Time
	TTL      time.Duration
	Shape    ClaimShape
}

// IDParams son los inputs de un ID token. Nonce vacío significa "no pedido":
// la claim no se emite.
type IDParams struct {
	ClientID string
	Issuer   string
	Now      time.Time
	TTL      time.Duration
	AuthTime time.Time
	Nonce    string
}

func ttlOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTTL
	}
	return d
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// AccessToken arma las claims del access token. jti es un UUID nuevo por
// llamada; todo lo demás es determinista dados los inputs. exp-iat == TTL.
func AccessToken(p Principal, in AccessParams) map[string]any {
	ttl := ttlOrDefault(in.TTL)
	iat := in.Now.Unix()

	c := map[string]any{
		"iss":                in.Issuer,
		"sub":                p.Subject,
		"aud":                in.ClientID,
		"azp":                in.ClientID,
		"iat":                iat,
		"nbf":                iat,
		"exp":                iat + int64(ttl/time.Second),
		"jti":                uuid.NewString(),
		"typ":                "Bearer",
		"scope":              in.Scope,
		"preferred_username": p.Username,
		"groups":             copyStrings(p.Groups),
	}
	addProfile(c, p)

	if in.Shape.flat() {
		c["roles"] = copyStrings(p.Roles)
	}
	if in.Shape.realm() {
		c["realm_access"] = map[string]any{"roles": copyStrings(p.Roles)}
	}
	if in.Shape.resource() {
		c["resource_access"] = map[string]any{
			in.ClientID: map[string]any{"roles": copyStrings(p.Roles)},
		}
	}
	return c
}

// IDToken arma las claims OIDC del ID token.
func IDToken(p Principal, in IDParams) map[string]any {
	ttl := ttlOrDefault(in.TTL)
	iat := in.Now.Unix()
	authTime := in.AuthTime
	if authTime.IsZero() {
		authTime = in.Now
	}

	c := map[string]any{
		"iss":                in.Issuer,
		"sub":                p.Subject,
		"aud":                in.ClientID,
		"azp":                in.ClientID,
		"iat":                iat,
		"exp":                iat + int64(ttl/time.Second),
		"auth_time":          authTime.Unix(),
		"typ":                "ID",
		"preferred_username": p.Username,
	}
	addProfile(c, p)
	if in.Nonce != "" {
		c["nonce"] = in.Nonce
	}
	return c
}

// UserInfo arma la respuesta de /userinfo. No depende del grant que emitió el token.
func UserInfo(p Principal) map[string]any {
	c := map[string]any{
		"sub":                p.Subject,
		"preferred_username": p.Username,
		"roles":              copyStrings(p.Roles),
		"groups":             copyStrings(p.Groups),
	}
	addProfile(c, p)
	return c
}

// addProfile agrega las claims de perfil. Los service accounts no tienen
// email ni nombre, así que esas claims se omiten en vez de ir vacías.
func addProfile(c map[string]any, p Principal) {
	if p.ServiceAccount {
		return
	}
	c["email"] = p.Email
	c["email_verified"] = p.EmailVerified
	c["name"] = p.Name
	c["given_name"] = p.GivenName
	c["family_name"] = p.FamilyName
}

// Builder fija issuer, TTL y shape para no repetirlos en cada llamada.
type Builder struct {
	Issuer string
	TTL    time.Duration
	Shape  ClaimShape
}

func (b Builder) AccessToken(p Principal, clientID, scope string, now time.Time) map[string]any {
	return AccessToken(p, AccessParams{
		ClientID: clientID, Issuer: b.Issuer, Scope: scope, Now: now, TTL: b.TTL, Shape: b.Shape,
	})
}

func (b Builder) IDToken(p Principal, clientID string, now, authTime time.Time, nonce string) map[string]any {
	return IDToken(p, IDParams{
		ClientID: clientID, Issuer: b.Issuer, Now: now, TTL: b.TTL, AuthTime: authTime, Nonce: nonce,
	})
}

// ExpiresIn es el expires_in de la respuesta de token, en segundos.
func (b Builder) ExpiresIn() int64 { return int64(ttlOrDefault(b.TTL) / time.Second) }
