package service

import (
	"context"
	"strings"

	"oneflow/internal/model"
	"oneflow/internal/repository"
	"oneflow/pkg/apperror"
	"oneflow/pkg/pagination"

	"go.uber.org/zap"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	ManagerID   *uint  `json:"manager_id"`
}

type ProjectResponse struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ManagerID   *uint      `json:"manager_id"`
	Manager     *QueueUser `json:"manager,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

// --- Interface ---

type ProjectService interface {
	Create(ctx context.Context, actorID uint, req CreateProjectRequest) (*ProjectResponse, error)
	Get(ctx context.Context, id uint) (*ProjectResponse, error)
	List(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	log         *zap.Logger
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	log *zap.Logger,
) ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		log:         log,
	}
}

// --- Implementation ---

func (s *projectService) Create(ctx context.Context, actorID uint, req CreateProjectRequest) (*ProjectResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.InvalidInput("title is required", nil)
	}

	project := &model.Project{
		Title:       title,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	}
	if req.ManagerID != nil {
		manager, err := s.userRepo.GetByID(ctx, *req.ManagerID)
		if err != nil {
			return nil, storeError(err, "Manager not found", "failed to fetch manager")
		}
		project.Manager = manager
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Create(txCtx, project); err != nil {
			return apperror.Persistence("failed to create project", err)
		}
		return writeAudit(txCtx, s.auditRepo, actorID, model.ActionCreateProject,
			uintString(project.ID), project.Title, map[string]interface{}{"manager_id": project.ManagerID})
	})
	if err != nil {
		s.log.Error("failed to create project", zap.String("title", title), zap.Error(err))
		return nil, err
	}

	res := toProjectResponse(project)
	return &res, nil
}

func (s *projectService) Get(ctx context.Context, id uint) (*ProjectResponse, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "Project not found", "failed to fetch project")
	}
	res := toProjectResponse(project)
	return &res, nil
}

func (s *projectService) List(ctx context.Context, page, limit int) ([]ProjectResponse, int64, error) {
	p := pagination.New(page, limit)
	projects, total, err := s.projectRepo.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return nil, 0, apperror.Persistence("failed to list projects", err)
	}

	res := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		res = append(res, toProjectResponse(&projects[i]))
	}
	return res, total, nil
}

// --- Helpers ---

func toProjectResponse(p *model.Project) ProjectResponse {
	res := ProjectResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		ManagerID:   p.ManagerID,
		CreatedAt:   p.CreatedAt.Format(timeLayout),
	}
	if p.Manager != nil {
		res.Manager = &QueueUser{ID: p.Manager.ID, Name: p.Manager.Name, Email: p.Manager.Email}
	}
	return res
}
