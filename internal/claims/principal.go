// Package claims arma los claim sets de access token, ID token y userinfo.
// Es puro: no firma, no lee stores, no mira el reloj (recibe now).
package claims

// Principal es la identidad para la que se emiten tokens.
type Principal struct {
	Subject       string
	Username      string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Roles         []string
	Groups        []string

	// ServiceAccount marca principals de client_credentials (sub = client_id).
	ServiceAccount bool
}

// ServiceAccountFor arma el principal de client_credentials: el propio cliente.
func ServiceAccountFor(clientID string, roles []string) Principal {
	return Principal{
		Subject:        clientID,
		Username:       "service-account-" + clientID,
		Roles:          roles,
		ServiceAccount: true,
	}
}
