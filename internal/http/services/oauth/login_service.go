package oauth

import (
	"context"

	dto "github.com/dropDatabas3/mockidp/internal/http/dto/oauth"
	"github.com/dropDatabas3/mockidp/internal/observability/logger"
)

// LoginService implementa POST /login: usuario + password en JSON contra el
// cliente por defecto, sin secreto de cliente. Responde como el grant
// password más un resumen del usuario.
type LoginService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type loginService struct {
	eng *grantEngine
}

func (s *loginService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	d := s.eng.deps
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.login"),
		logger.Op("Login"),
		logger.ClientID(d.LoginClientID),
	)

	client, err := s.eng.auth.lookup(ctx, d.LoginClientID)
	if err != nil {
		return nil, err
	}
	scope, err := s.eng.resolveScope(req.Scope, client)
	if err != nil {
		return nil, err
	}
	u, err := s.eng.checkPassword(ctx, req.Username, req.Password)
	if err != nil {
		d.Metrics.GrantFailed("login", errorCode(err))
		log.Info("login rejected", logger.Err(err))
		return nil, err
	}

	tr, err := s.eng.issue(ctx, &issued{principal: u.Principal, client: client, scope: scope})
	if err != nil {
		log.Error("login issue failed", logger.Err(err))
		return nil, err
	}
	d.Metrics.TokenIssued("login")
	log.Info("login succeeded", logger.Subject(u.Subject))

	roles, groups := u.Roles, u.Groups
	if roles == nil {
		roles = []string{}
	}
	if groups == nil {
		groups = []string{}
	}
	return &dto.LoginResponse{
		TokenResponse: *tr,
		User: dto.LoginUser{
			Sub:      u.Subject,
			Username: u.Username,
			Email:    u.Email,
			Name:     u.Name,
			Roles:    roles,
			Groups:   groups,
		},
	}, nil
}
