// Package validation chequea lo que se registra en config.yaml antes de
// sembrar clientes: nombres de scope y redirect URIs.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Un scope es un token RFC 6749 §3.3 restringido: minúsculas, empieza y
// termina en [a-z0-9], al medio admite [a-z0-9:_.-], largo 1..64.
//
// Válidos: openid, reports.read, profile:read, a_b-c.d:scope2
// Inválidos: "", BAD, "bad space", :lead, trail:, semicolon;hack
var scopeNameRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9:_\.-]{0,62}[a-z0-9])?$`)

func ValidScopeName(name string) bool {
	return scopeNameRe.MatchString(name)
}

// ScopeList valida una lista separada por espacios y devuelve el primer
// nombre inválido como error.
func ScopeList(raw string) error {
	for _, s := range strings.Fields(raw) {
		if !ValidScopeName(s) {
			return fmt.Errorf("invalid scope name %q", s)
		}
	}
	return nil
}

var (
	ErrRedirectNotAbsolute = errors.New("redirect_uri must be absolute")
	ErrRedirectFragment    = errors.New("redirect_uri must not contain a fragment")
)

// RedirectURI exige una URI absoluta (scheme + host) sin fragmento.
// Se compara byte a byte contra lo que mande el cliente, así que no se
// normaliza nada acá.
func RedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("redirect_uri %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrRedirectNotAbsolute, raw)
	}
	if u.Fragment != "" || strings.Contains(raw, "#") {
		return fmt.Errorf("%w: %q", ErrRedirectFragment, raw)
	}
	return nil
}
