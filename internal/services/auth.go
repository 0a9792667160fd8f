package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/techwave-backend/internal/authz"
	"github.com/yungbote/techwave-backend/internal/platform/ctxutil"
	"github.com/yungbote/techwave-backend/internal/platform/logger"
)

var ErrInvalidToken = errors.New("invalid token")

// AuthService verifies bearer tokens minted by the identity provider. Accounts live
// outside this service; a token only carries the user id (sub) and a role.
type AuthService interface {
	IssueToken(userID uuid.UUID, role authz.Role) (string, error)
	ParseActor(tokenString string) (authz.Actor, error)
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type JWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey []byte
	issuer       string
	accessTTL    time.Duration
	now          func() time.Time
}

func NewAuthService(log *logger.Logger, jwtSecretKey, issuer string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		jwtSecretKey: []byte(jwtSecretKey),
		issuer:       strings.TrimSpace(issuer),
		accessTTL:    accessTTL,
		now:          time.Now,
	}
}

func (as *authService) GetAccessTTL() time.Duration { return as.accessTTL }

// IssueToken mints an access token. It backs local tooling and tests; production
// tokens come from the identity provider sharing the same secret.
func (as *authService) IssueToken(userID uuid.UUID, role authz.Role) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("issue token: missing user id")
	}
	if _, err := authz.ParseRole(string(role)); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	now := as.now()
	claims := JWTClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    as.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(as.jwtSecretKey)
}

func (as *authService) ParseActor(tokenString string) (authz.Actor, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return authz.Actor{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(as.now),
	}
	if as.issuer != "" {
		opts = append(opts, jwt.WithIssuer(as.issuer))
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return as.jwtSecretKey, nil
	}, opts...)
	if err != nil {
		return authz.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return authz.Actor{}, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return authz.Actor{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	role := authz.RoleClient
	if strings.TrimSpace(claims.Role) != "" {
		role, err = authz.ParseRole(claims.Role)
		if err != nil {
			return authz.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	return authz.Actor{UserID: userID, Role: role}, nil
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	actor, err := as.ParseActor(tokenString)
	if err != nil {
		as.log.Debug("Token rejected", "error", err)
		return ctx, err
	}
	rd := &ctxutil.RequestData{
		TokenString: tokenString,
		UserID:      actor.UserID,
		Role:        actor.Role,
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}
