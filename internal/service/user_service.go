package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/pkg/apperror"
	"oneflow/pkg/pagination"
	"oneflow/pkg/token"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// --- DTOs ---

type SignupRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin project_manager team_member sales_finance"`
}

// UserResponse never exposes the password hash.
type UserResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// AdminSeed describes the account created on first start.
type AdminSeed struct {
	Name     string
	Email    string
	Password string
}

// --- Interface ---

type UserService interface {
	Signup(ctx context.Context, req SignupRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetByID(ctx context.Context, id uint) (*UserResponse, error)
	List(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	UpdateRole(ctx context.Context, id, actorID uint, role string) (*UserResponse, error)
	EnsureAdmin(ctx context.Context, seed AdminSeed) error
}

type userService struct {
	repo      repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	issuer    token.Issuer
	log       *zap.Logger
	now       func() time.Time
}

func NewUserService(
	repo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	issuer token.Issuer,
	log *zap.Logger,
) UserService {
	return &userService{
		repo:      repo,
		auditRepo: auditRepo,
		txManager: txManager,
		issuer:    issuer,
		log:       log,
		now:       time.Now,
	}
}

// --- Implementation ---

// Signup registers a team member. Other roles are granted by an admin.
func (s *userService) Signup(ctx context.Context, req SignupRequest) (*UserResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleTeamMember)
	if err != nil {
		return nil, err
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, apperror.Persistence("failed to fetch user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	signed, expiresAt, err := s.issuer.Issue(user.ID, user.Role, s.now())
	if err != nil {
		return nil, apperror.Persistence("failed to issue token", err)
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return &LoginResponse{Token: signed, ExpiresAt: expiresAt, User: toUserResponse(user)}, nil
}

func (s *userService) GetByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "User not found", "failed to fetch user")
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) List(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	p := pagination.New(page, limit)
	users, total, err := s.repo.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperror.Persistence("failed to list users", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) UpdateRole(ctx context.Context, id, actorID uint, role string) (*UserResponse, error) {
	if !model.ValidRole(role) {
		return nil, apperror.InvalidInput("invalid role", errors.New(strings.Join(model.Roles, ", ")+" expected"))
	}

	var updated *model.User
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return storeError(err, "User not found", "failed to fetch user")
		}
		previous := user.Role

		if err := s.repo.UpdateRole(txCtx, id, role); err != nil {
			return storeError(err, "User not found", "failed to update role")
		}
		user.Role = role
		updated = user

		return writeAudit(txCtx, s.auditRepo, actorID, model.ActionUpdateUserRole,
			uintString(id), user.Email, map[string]string{"from": previous, "to": role})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user role updated", zap.Uint("user_id", id), zap.String("role", role), zap.Uint("actor_id", actorID))
	res := toUserResponse(updated)
	return &res, nil
}

// EnsureAdmin creates the seed admin when no admin account exists yet.
func (s *userService) EnsureAdmin(ctx context.Context, seed AdminSeed) error {
	if seed.Email == "" || seed.Password == "" {
		s.log.Warn("admin seed skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	count, err := s.repo.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return apperror.Persistence("failed to count admins", err)
	}
	if count > 0 {
		return nil
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}
	user, err := s.createUser(ctx, name, seed.Email, seed.Password, model.RoleAdmin)
	if err != nil {
		return err
	}
	s.log.Info("seeded admin account", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	return nil
}

// --- Helpers ---

// createUser stores a new account. The audit row is attributed to the new user.
func (s *userService) createUser(ctx context.Context, name, email, password, role string) (*model.User, error) {
	if len(password) < 6 {
		return nil, apperror.InvalidInput("password must be at least 6 characters", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Persistence("failed to hash password", err)
	}

	user := &model.User{
		Name:     strings.TrimSpace(name),
		Email:    normalizeEmail(email),
		Password: string(hashed),
		Role:     role,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.Conflict("email already registered", err)
			}
			return apperror.Persistence("failed to create user", err)
		}
		return writeAudit(txCtx, s.auditRepo, user.ID, model.ActionSignup,
			uintString(user.ID), user.Email, map[string]string{"role": role})
	})
	if err != nil {
		if apperror.KindOf(err) == apperror.KindPersistence {
			s.log.Error("failed to create user", zap.String("email", user.Email), zap.Error(err))
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt.Format(timeLayout),
	}
}
