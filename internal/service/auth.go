package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/templui/estatedesk/internal/model"
	"github.com/templui/estatedesk/internal/repository"
	"github.com/templui/estatedesk/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrInvalidEmail           = errors.New("invalid email address")
	ErrInvalidMagicLink       = errors.New("invalid or expired magic link")
	ErrInvalidCurrentPassword = errors.New("current password is incorrect")
	ErrPasswordless           = errors.New("this account uses passwordless login, please use the magic link option")
)

type AuthService struct {
	agentRepo            repository.AgentRepository
	tokenRepo            repository.TokenRepository
	agentService         *AgentService
	emailService         *EmailService
	jwtSecret            string
	isProduction         bool
	jwtExpiry            time.Duration
	tokenMagicLinkExpiry time.Duration
}

func NewAuthService(
	agentRepo repository.AgentRepository,
	tokenRepo repository.TokenRepository,
	agentService *AgentService,
	emailService *EmailService,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	tokenMagicLinkExpiry time.Duration,
) *AuthService {
	return &AuthService{
		agentRepo:            agentRepo,
		tokenRepo:            tokenRepo,
		agentService:         agentService,
		emailService:         emailService,
		jwtSecret:            jwtSecret,
		isProduction:         isProduction,
		jwtExpiry:            jwtExpiry,
		tokenMagicLinkExpiry: tokenMagicLinkExpiry,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func (s *AuthService) Login(email, password string) (*model.Agent, error) {
	email = normalizeEmail(email)

	agent, err := s.agentRepo.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrAgentNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	if !agent.HasPassword() {
		return nil, ErrInvalidCredentials
	}

	err = s.ComparePassword(password, *agent.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return agent, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// SetPassword sets or changes the password. The current password is only
// required once one is set.
func (s *AuthService) SetPassword(agentID, currentPassword, newPassword string) error {
	agent, err := s.agentRepo.ByID(agentID)
	if err != nil {
		return fmt.Errorf("failed to get agent: %w", err)
	}

	if agent.HasPassword() {
		err = s.ComparePassword(currentPassword, *agent.PasswordHash)
		if err != nil {
			return ErrInvalidCurrentPassword
		}
	}

	err = validation.ValidatePassword(newPassword)
	if err != nil {
		return &ValidationError{Err: err}
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.agentRepo.UpdatePassword(agentID, hashedPassword)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	slog.Info("password updated", "agent_id", agentID, "changed", agent.HasPassword())
	return nil
}

func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(agent *model.Agent) (string, error) {
	claims := jwt.MapClaims{
		"agent_id": agent.ID,
		"email":    agent.Email,
		"exp":      time.Now().Add(s.jwtExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// AgentFromJWT resolves the agent a session token belongs to.
func (s *AuthService) AgentFromJWT(tokenString string) (*model.Agent, error) {
	claims, err := s.VerifyJWT(tokenString)
	if err != nil {
		return nil, err
	}

	agentID, ok := claims["agent_id"].(string)
	if !ok || agentID == "" {
		return nil, errors.New("token has no agent_id claim")
	}

	return s.agentRepo.ByID(agentID)
}

// IssueSession creates a JWT and sets it as cookie.
func (s *AuthService) IssueSession(w http.ResponseWriter, agent *model.Agent) (string, error) {
	token, err := s.GenerateJWT(agent)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	s.SetJWTCookie(w, token, time.Now().Add(s.jwtExpiry))
	return token, nil
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// SendMagicLink handles the combined login/signup flow.
// Unknown emails get a new agent on the free plan before the link is sent.
func (s *AuthService) SendMagicLink(email string) error {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	agent, err := s.agentRepo.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrAgentNotFound) {
			return fmt.Errorf("failed to lookup agent: %w", err)
		}

		agent, err = s.agentService.Create(email, "", false)
		if err != nil {
			return err
		}
		slog.Info("new passwordless agent created", "email", email, "agent_id", agent.ID)
	}

	magicToken, err := GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	// Only the newest link stays valid
	err = s.tokenRepo.Replace(&model.Token{
		AgentID:   agent.ID,
		Type:      model.TokenTypeMagicLink,
		Token:     magicToken,
		ExpiresAt: time.Now().Add(s.tokenMagicLinkExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to store magic link: %w", err)
	}

	err = s.emailService.SendMagicLinkEmail(agent.Email, magicToken)
	if err != nil {
		slog.Error("failed to send magic link email", "error", err, "email", agent.Email)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("magic link sent", "email", agent.Email)
	return nil
}

// VerifyMagicLink consumes the token and returns the authenticated agent.
// The first successful login verifies the email and sends the welcome mail.
func (s *AuthService) VerifyMagicLink(token string) (*model.Agent, error) {
	tokenModel, err := s.tokenRepo.Consume(token, model.TokenTypeMagicLink, time.Now())
	if err != nil {
		return nil, ErrInvalidMagicLink
	}

	agent, err := s.agentRepo.ByID(tokenModel.AgentID)
	if err != nil {
		return nil, fmt.Errorf("agent not found: %w", err)
	}

	if agent.EmailVerifiedAt == nil {
		now := time.Now()
		err = s.agentRepo.MarkEmailVerified(agent.ID, now)
		if err != nil {
			slog.Warn("failed to verify email", "error", err, "agent_id", agent.ID)
		} else {
			agent.EmailVerifiedAt = &now
			err = s.emailService.SendWelcomeEmail(agent.Email, agent.DisplayName())
			if err != nil {
				slog.Warn("failed to send welcome email", "error", err, "email", agent.Email)
			}
		}
	}

	slog.Info("agent authenticated via magic link", "agent_id", agent.ID)
	return agent, nil
}

// AuthenticateOAuth logs in or creates the agent behind a verified provider email.
func (s *AuthService) AuthenticateOAuth(email, name, provider string) (*model.Agent, error) {
	email = normalizeEmail(email)

	err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	agent, err := s.agentRepo.ByEmail(email)
	if err != nil {
		if !errors.Is(err, repository.ErrAgentNotFound) {
			return nil, fmt.Errorf("failed to lookup agent: %w", err)
		}

		agent, err = s.agentService.Create(email, name, true)
		if err != nil {
			return nil, err
		}

		err = s.emailService.SendWelcomeEmail(agent.Email, agent.DisplayName())
		if err != nil {
			slog.Warn("failed to send welcome email", "error", err, "email", agent.Email)
		}

		slog.Info("new OAuth agent created", "email", email, "agent_id", agent.ID, "provider", provider)
		return agent, nil
	}

	// Provider has verified the email
	if agent.EmailVerifiedAt == nil {
		now := time.Now()
		err = s.agentRepo.MarkEmailVerified(agent.ID, now)
		if err != nil {
			slog.Warn("failed to mark email as verified", "error", err, "agent_id", agent.ID)
		} else {
			agent.EmailVerifiedAt = &now
		}
	}

	slog.Info("agent authenticated via OAuth", "agent_id", agent.ID, "provider", provider)
	return agent, nil
}

// PurgeTokens deletes login tokens used or expired more than olderThan ago.
func (s *AuthService) PurgeTokens(olderThan time.Duration) (int64, error) {
	return s.tokenRepo.Purge(time.Now().Add(-olderThan))
}
