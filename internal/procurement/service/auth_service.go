package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/uthejd-slx/procura-backend/internal/config"
	"github.com/uthejd-slx/procura-backend/internal/procurement/entity"
	"github.com/uthejd-slx/procura-backend/internal/procurement/repository"
	"github.com/uthejd-slx/procura-backend/internal/shared/roles"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	refreshKeyPrefix    = "token:refresh:"
	activationKeyPrefix = "auth:activation:"
	resetKeyPrefix      = "auth:password-reset:"

	activationTTL = 72 * time.Hour
	resetTTL      = time.Hour

	minPasswordLength = 8
)

// AuthService registration, login and token lifecycle.
type AuthService struct {
	repos  *repository.Repositories
	rdb    *redis.Client
	cfg    *config.Config
	mailer Mailer
}

func NewAuthService(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, mailer Mailer) *AuthService {
	return &AuthService{repos: repos, rdb: rdb, cfg: cfg, mailer: mailer}
}

// TokenPair issued on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *UserView `json:"user,omitempty"`
}

// UserView user with its effective roles.
type UserView struct {
	*entity.User
	Roles []string `json:"roles"`
}

func viewOf(u *entity.User) *UserView {
	return &UserView{User: u, Roles: roles.UserRoles(u.IsSuperuser, u.ProfileRoles())}
}

// RegisterInput registration request.
type RegisterInput struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// RegisterResult MailSent is false when no activation mail went out.
// ActivationToken is only filled in debug mode.
type RegisterResult struct {
	User            *UserView `json:"user"`
	Detail          string    `json:"detail"`
	MailSent        bool      `json:"mail_sent"`
	ActivationToken string    `json:"activation_token,omitempty"`
}

// NormalizeEmail trims, validates and lowercases an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") || at == len(email)-1 {
		return "", invalid("enter a valid email address")
	}
	if !strings.Contains(email[at+1:], ".") {
		return "", invalid("enter a valid email address (e.g. name@domain.com)")
	}
	return email, nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func oneTimeToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Register creates an inactive account and mails the activation link.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if _, err := s.repos.User.FindByEmail(ctx, email); err == nil {
		return nil, invalid("a user with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &entity.User{
		ID:           entity.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     s.cfg.Auth.AutoActivate,
	}
	user.Profile = &entity.Profile{
		UserID:                    user.ID,
		DisplayName:               strings.TrimSpace(in.DisplayName),
		NotificationsEmailEnabled: true,
		Roles:                     entity.StringList{},
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	result := &RegisterResult{User: viewOf(user)}
	if user.IsActive {
		result.Detail = "Registration successful."
		return result, nil
	}

	token := oneTimeToken()
	if err := s.rdb.Set(ctx, activationKeyPrefix+token, user.ID, activationTTL).Err(); err != nil {
		return nil, fmt.Errorf("store activation token: %w", err)
	}
	link := s.frontendLink("/activate", token)
	result.Detail = "Registration successful. Check email to activate."
	result.MailSent = s.send(ctx, user.Email, "Activate your account",
		"Welcome!\n\nActivate your account with the link below:\n"+link)
	if s.cfg.Server.DebugErrors {
		result.ActivationToken = token
	}
	return result, nil
}

func (s *AuthService) frontendLink(path, token string) string {
	base := strings.TrimRight(s.cfg.Server.FrontendURL, "/")
	return base + path + "?token=" + url.QueryEscape(token)
}

// send mails best-effort and reports whether it went out.
func (s *AuthService) send(ctx context.Context, to, subject, body string) bool {
	if s.mailer == nil || !s.mailer.Enabled() {
		return false
	}
	if err := s.mailer.SendMail(ctx, []string{to}, subject, body); err != nil {
		zap.L().Warn("auth mail failed", zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}

// consume reads and deletes a one-time token.
func (s *AuthService) consume(ctx context.Context, key string) (string, error) {
	userID, err := s.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", invalid("invalid or expired token")
	}
	return userID, err
}

// Activate enables the account bound to a one-time activation token.
func (s *AuthService) Activate(ctx context.Context, token string) error {
	if token == "" {
		return invalid("token is required")
	}
	userID, err := s.consume(ctx, activationKeyPrefix+token)
	if err != nil {
		return err
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return invalid("invalid or expired token")
	}
	user.IsActive = true
	return s.repos.User.Update(ctx, user)
}

// Login checks credentials of an active account and issues a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	const msg = "no active account found with the given credentials"
	user, err := s.repos.User.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, msg)
		}
		return nil, err
	}
	if !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, newError(ErrUnauthorized, msg)
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := s.repos.User.TouchLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		zap.L().Warn("touch last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	pair.User = viewOf(user)
	return pair, nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()
	secret := []byte(s.cfg.JWT.Secret)

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.DisplayName(),
		"email": user.Email,
		"roles": roles.UserRoles(user.IsSuperuser, user.ProfileRoles()),
		"type":  "access",
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   uuid.NewString(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshJti := uuid.NewString()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refresh, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.rdb.Set(ctx, refreshKeyPrefix+refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

// RefreshToken rotates a refresh token. The presented one is revoked.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, newError(ErrUnauthorized, "invalid refresh token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return nil, newError(ErrUnauthorized, "invalid token type")
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, newError(ErrUnauthorized, "invalid refresh token")
	}

	userID, err := s.rdb.GetDel(ctx, refreshKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return nil, newError(ErrUnauthorized, "refresh token expired or revoked")
	}
	if err != nil {
		return nil, err
	}

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil || !user.IsActive {
		return nil, newError(ErrUnauthorized, "user is inactive or no longer exists")
	}
	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	pair.User = viewOf(user)
	return pair, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(refreshToken, claims)
	if err != nil {
		return nil
	}
	if jti, _ := claims["jti"].(string); jti != "" {
		return s.rdb.Del(ctx, refreshKeyPrefix+jti).Err()
	}
	return nil
}

// RequestPasswordReset mails a reset link to known active users. It never
// reveals whether the address exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	user, err := s.repos.User.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !user.IsActive {
		return "", nil
	}

	token := oneTimeToken()
	if err := s.rdb.Set(ctx, resetKeyPrefix+token, user.ID, resetTTL).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	s.send(ctx, user.Email, "Password reset",
		"Reset your password using the link below:\n"+s.frontendLink("/reset-password/confirm", token))
	if s.cfg.Server.DebugErrors {
		return token, nil
	}
	return "", nil
}

// ConfirmPasswordReset sets a new password and consumes the token.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return invalid("token is required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	userID, err := s.consume(ctx, resetKeyPrefix+token)
	if err != nil {
		return err
	}
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return invalid("invalid or expired token")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return s.repos.User.Update(ctx, user)
}

// ResolveRoles returns the current roles and active flag of a user.
func (s *AuthService) ResolveRoles(ctx context.Context, userID string) ([]string, bool, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return roles.UserRoles(user.IsSuperuser, user.ProfileRoles()), user.IsActive, nil
}

// Me returns the current user with roles.
func (s *AuthService) Me(ctx context.Context, actor Actor) (*UserView, error) {
	user, err := s.repos.User.FindByID(ctx, actor.ID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return viewOf(user), nil
}
