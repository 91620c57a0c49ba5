package service

import (
	"context"
	"strings"
	"time"

	"go-markboard/internal/model"
	"go-markboard/internal/repository"
	"go-markboard/pkg/logger"
	"go-markboard/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// 处理认证相关业务逻辑
type AuthService struct {
	userRepo   *repository.UserRepository
	tokens     *utils.TokenManager
	activity   *ActivityService
	bcryptCost int
}

func NewAuthService(userRepo *repository.UserRepository, tokens *utils.TokenManager, activity *ActivityService, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		activity:   activity,
		bcryptCost: bcryptCost,
	}
}

// 用户注册/登陆请求
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresIn int64       `json:"expires_in"`
	User      *model.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) validateCredentials(req Credentials) (string, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return "", invalidInput("Email and password are required")
	}
	if !validateEmail(email) {
		return "", invalidInput("Invalid email format")
	}
	if err := validatePassword(req.Password); err != nil {
		return "", err
	}
	return email, nil
}

// 注册新用户
func (s *AuthService) Register(ctx context.Context, req Credentials) (*model.User, error) {
	email, err := s.validateCredentials(req)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, operationFailed("Registration failed", err)
	}
	if existing != nil {
		return nil, conflict("Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, operationFailed("Registration failed", err)
	}

	user := &model.User{Email: email, PasswordHash: string(hash)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, operationFailed("Registration failed", err)
	}

	s.activity.Record(ctx, user.ID, model.ActionUserRegistered, model.ResourceUser, uintPtr(user.ID), "User registered: "+email)
	logger.L.Info("User registered", zap.Uint("userID", user.ID))
	return user, nil
}

// 用户登陆，成功后更新最后登录时间
func (s *AuthService) Login(ctx context.Context, req Credentials) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalidInput("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, operationFailed("Login failed", err)
	}
	if user == nil {
		return nil, unauthenticated("Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, unauthenticated("Invalid email or password")
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, operationFailed("Login failed", err)
	}
	user.LastLogin = &now

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		return nil, operationFailed("Login failed", err)
	}

	s.activity.Record(ctx, user.ID, model.ActionUserLogin, model.ResourceUser, uintPtr(user.ID), "User logged in: "+email)
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.Expiration().Seconds()),
		User:      user,
	}, nil
}

// Authenticate 解析令牌并加载对应用户
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		if utils.IsExpired(err) {
			return nil, unauthenticated("Token has expired")
		}
		return nil, unauthenticated("Invalid token")
	}
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, operationFailed("Authentication failed", err)
	}
	if user == nil {
		return nil, unauthenticated("User not found")
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, operationFailed("Failed to load user", err)
	}
	if user == nil {
		return nil, notFound("User not found")
	}
	return user, nil
}

// EnsureAdmin 创建管理员账号，账号已存在时提升为管理员
func (s *AuthService) EnsureAdmin(ctx context.Context, req Credentials) (*model.User, bool, error) {
	email := normalizeEmail(req.Email)
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, operationFailed("Failed to create admin", err)
	}
	if existing != nil {
		if err := s.userRepo.SetAdmin(ctx, existing.ID, true); err != nil {
			return nil, false, operationFailed("Failed to promote admin", err)
		}
		existing.IsAdmin = true
		return existing, false, nil
	}

	email, err = s.validateCredentials(req)
	if err != nil {
		return nil, false, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, false, operationFailed("Failed to create admin", err)
	}
	user := &model.User{Email: email, PasswordHash: string(hash), IsAdmin: true}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, operationFailed("Failed to create admin", err)
	}
	return user, true, nil
}
