package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/account-service/internal/domain/entity"
	"github.com/oksasatya/account-service/pkg/helpers"
)

// AuthService issues access tokens for authenticated accounts.
type AuthService struct {
	Accounts *Service
	JWT      *helpers.JWTManager
	Logger   *logrus.Logger
}

func NewAuthService(accounts *Service, jwt *helpers.JWTManager, logger *logrus.Logger) *AuthService {
	return &AuthService{Accounts: accounts, JWT: jwt, Logger: logger}
}

type LoginResult struct {
	Account     *entity.Account
	Roles       []string
	AccessToken string
	ExpiresAt   time.Time
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	a, roles, err := s.Accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.JWT.GenerateAccessToken(a.ID, roles)
	if err != nil {
		s.Logger.WithError(err).WithField("account_id", a.ID).Error("generate access token failed")
		return nil, err
	}
	return &LoginResult{Account: a, Roles: roles, AccessToken: token, ExpiresAt: exp}, nil
}

// ActorFromClaims builds the explicit actor passed to lifecycle calls.
func ActorFromClaims(c *helpers.Claims) entity.Actor {
	return entity.Actor{ID: c.AccountID, Admin: entity.HasRole(c.Roles, entity.RoleAdmin)}
}
