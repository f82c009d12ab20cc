package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"busline/internal/domain"
	"busline/internal/domain/models"
	"busline/internal/repositories"
	"busline/internal/utils"
)

const tokenLifetime = 24 * time.Hour

type AuthService struct {
	UserRepo  repositories.UserRepository
	BusRepo   repositories.BusRepository
	JWTSecret string
	RequestID string
}

type RegisterRequest struct {
	Name     string
	Username string
	Email    string
	Phone    string
	Password string
}

type AuthResult struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

func (s AuthService) Register(req RegisterRequest) (AuthResult, error) {
	var none AuthResult
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	switch {
	case req.Name == "":
		return none, domain.ValidationError{Field: "name"}
	case req.Username == "":
		return none, domain.ValidationError{Field: "username"}
	case !strings.Contains(req.Email, "@"):
		return none, domain.ValidationError{Field: "email", Msg: "invalid email address"}
	case len(req.Password) < 8:
		return none, domain.ValidationError{Field: "password", Msg: "must be at least 8 characters"}
	}

	taken, err := s.UserRepo.Exists(req.Email, req.Username)
	if err != nil {
		return none, err
	}
	if taken {
		return none, domain.ConflictError{Resource: "user", Msg: "email or username already registered"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return none, domain.InternalError{Msg: "hash password", Err: err}
	}

	user := models.User{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     models.RoleNormalUser,
	}
	id, err := s.UserRepo.Create(user, string(hash))
	if err != nil {
		return none, err
	}
	user.ID = id

	token, err := s.issueToken(user)
	if err != nil {
		return none, err
	}
	utils.LogEvent(s.RequestID, "auth", "register", fmt.Sprintf("user_id=%d", id))
	return AuthResult{User: user, Token: token}, nil
}

func (s AuthService) Login(identity, password string) (AuthResult, error) {
	var none AuthResult
	identity = strings.TrimSpace(identity)
	if identity == "" || password == "" {
		return none, domain.ValidationError{Field: "credentials"}
	}

	user, hash, err := s.UserRepo.GetCredentials(identity)
	if err != nil {
		if domain.IsNotFound(err) {
			return none, domain.AuthorizationError{Msg: "invalid credentials"}
		}
		return none, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return none, domain.AuthorizationError{Msg: "invalid credentials"}
	}

	token, err := s.issueToken(user)
	if err != nil {
		return none, err
	}
	utils.LogEvent(s.RequestID, "auth", "login", fmt.Sprintf("user_id=%d", user.ID))
	return AuthResult{User: user, Token: token}, nil
}

// ConductorLogin authenticates the scanner device on a bus: it resolves the
// bus by its fleet number, then the conductor account assigned to it, and
// checks that account's password.
func (s AuthService) ConductorLogin(busNumber, password string) (AuthResult, error) {
	var none AuthResult
	busNumber = strings.TrimSpace(busNumber)
	if busNumber == "" || password == "" {
		return none, domain.ValidationError{Field: "credentials"}
	}

	bus, err := s.BusRepo.GetByNumber(busNumber)
	if err != nil {
		if domain.IsNotFound(err) {
			return none, domain.AuthorizationError{Msg: "invalid credentials"}
		}
		return none, err
	}
	conductor, err := s.UserRepo.ConductorForBus(bus.ID)
	if err != nil {
		if domain.IsNotFound(err) {
			return none, domain.AuthorizationError{Msg: "invalid credentials"}
		}
		return none, err
	}
	_, hash, err := s.UserRepo.GetCredentials(conductor.Username)
	if err != nil {
		return none, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return none, domain.AuthorizationError{Msg: "invalid credentials"}
	}

	token, err := s.issueToken(conductor)
	if err != nil {
		return none, err
	}
	utils.LogEvent(s.RequestID, "auth", "conductor_login",
		fmt.Sprintf("user_id=%d bus_id=%d", conductor.ID, bus.ID))
	return AuthResult{User: conductor, Token: token}, nil
}

func (s AuthService) issueToken(u models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"role": string(u.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.JWTSecret))
	if err != nil {
		return "", domain.InternalError{Msg: "sign token", Err: err}
	}
	return signed, nil
}
