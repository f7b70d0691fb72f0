package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/mockidp/internal/claims"
	"github.com/dropDatabas3/mockidp/internal/security/password"
)

// ClientSeed es un cliente tal como viene de config. Secret puede venir en
// claro o ya hasheado.
type ClientSeed struct {
	ID           string
	Secret       string
	Public       bool
	GrantTypes   []string
	RedirectURIs []string
	Scopes       []string
	Roles        []string
}

// UserSeed es un usuario tal como viene de config.
type UserSeed struct {
	Subject       string
	Username      string
	Password      string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	Roles         []string
	Groups        []string
}

// MemoryStore implementa ClientStore y UserStore sobre mapas inmutables.
type MemoryStore struct {
	clients    map[string]*ClientRegistration
	byUsername map[string]*User
	bySubject  map[string]*User
}

// HashFunc permite a los tests usar parámetros argon2 baratos.
type HashFunc func(plain string) (string, error)

// NewMemoryStore hashea los secretos en claro con hash (nil = password.Hash).
func NewMemoryStore(clients []ClientSeed, users []UserSeed, hash HashFunc) (*MemoryStore, error) {
	if hash == nil {
		hash = password.Hash
	}
	s := &MemoryStore{
		clients:    make(map[string]*ClientRegistration, len(clients)),
		byUsername: make(map[string]*User, len(users)),
		bySubject:  make(map[string]*User, len(users)),
	}

	for _, c := range clients {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return nil, fmt.Errorf("store: client without id")
		}
		if _, dup := s.clients[id]; dup {
			return nil, fmt.Errorf("store: duplicate client %q", id)
		}
		reg := &ClientRegistration{
			ID:           id,
			Public:       c.Public,
			GrantTypes:   c.GrantTypes,
			RedirectURIs: c.RedirectURIs,
			Scopes:       c.Scopes,
			Roles:        c.Roles,
		}
		if !c.Public {
			h, err := hashIfPlain(c.Secret, hash)
			if err != nil {
				return nil, fmt.Errorf("store: client %q: %w", id, err)
			}
			reg.SecretHash = h
		}
		s.clients[id] = reg
	}

	for _, u := range users {
		if u.Username == "" {
			return nil, fmt.Errorf("store: user without username")
		}
		h, err := hashIfPlain(u.Password, hash)
		if err != nil {
			return nil, fmt.Errorf("store: user %q: %w", u.Username, err)
		}
		sub := u.Subject
		if sub == "" {
			sub = u.Username
		}
		usr := &User{
			Principal: claims.Principal{
				Subject:       sub,
				Username:      u.Username,
				Email:         u.Email,
				EmailVerified: u.EmailVerified,
				Name:          u.Name,
				GivenName:     u.GivenName,
				FamilyName:    u.FamilyName,
				Roles:         u.Roles,
				Groups:        u.Groups,
			},
			PasswordHash: h,
		}
		s.byUsername[u.Username] = usr
		s.bySubject[sub] = usr
	}
	return s, nil
}

func hashIfPlain(secret string, hash HashFunc) (string, error) {
	if password.IsHashed(secret) {
		return secret, nil
	}
	return hash(secret)
}

func (s *MemoryStore) GetClient(_ context.Context, clientID string) (*ClientRegistration, error) {
	if c, ok := s.clients[clientID]; ok {
		return c, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*User, error) {
	if u, ok := s.byUsername[username]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserBySubject(_ context.Context, subject string) (*User, error) {
	if u, ok := s.bySubject[subject]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

// FirstClientID devuelve el primer cliente sembrado en orden de config
// (lo usa /login cuando no se configura uno).
func FirstClientID(seeds []ClientSeed) string {
	if len(seeds) == 0 {
		return ""
	}
	return seeds[0].ID
}
