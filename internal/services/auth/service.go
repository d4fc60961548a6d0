// Package auth handles registration and login. Registration provisions
// the user together with their wallet so no user ever exists without one.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nilepay/internal/apperrors"
	"nilepay/internal/models"
	"nilepay/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*models.User, error)
	// Login returns a signed token for valid credentials.
	Login(ctx context.Context, email, password string) (string, *models.User, error)
}

type service struct {
	store     repositories.Store
	logger    *zap.Logger
	jwtSecret []byte
}

func NewService(store repositories.Store, logger *zap.Logger, jwtSecret string) Service {
	return &service{store: store, logger: logger, jwtSecret: []byte(jwtSecret)}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:    strings.ToLower(strings.TrimSpace(req.Email)),
		Password: string(hashed),
		Name:     req.Name,
	}

	err = s.store.ExecuteInTransaction(ctx, func(store repositories.Store) error {
		if _, err := store.Users().GetByEmail(ctx, user.Email); err == nil {
			return apperrors.ErrEmailTaken
		} else if !errors.Is(err, repositories.ErrUserNotFound) {
			return fmt.Errorf("register: %w", err)
		}

		if err := store.Users().Create(ctx, user); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		wallet := &models.Wallet{
			UserID:    user.ID,
			WalletRef: newWalletRef(),
			Status:    models.WalletStatusActive,
		}
		if err := store.Wallets().Create(ctx, wallet); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		return store.Audit().Write(ctx, &models.AuditLog{
			UserID: user.ID,
			Action: models.AuditRegister,
			Details: models.JSON{
				"walletId":  wallet.ID,
				"walletRef": wallet.WalletRef,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", nil, apperrors.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.signToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *service) signToken(user *models.User) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func newWalletRef() string {
	return "NP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
