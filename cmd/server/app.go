package main

import (
	"fmt"

	"go-markboard/internal/repository"
	"go-markboard/internal/service"
	"go-markboard/internal/storage"
	"go-markboard/pkg/config"
	"go-markboard/pkg/db"
	"go-markboard/pkg/logger"
	"go-markboard/pkg/utils"

	"gorm.io/gorm"
)

// application 一次命令执行所需的全部依赖
type application struct {
	cfg      *config.Config
	db       *gorm.DB
	users    *repository.UserRepository
	activity *service.ActivityService
	auth     *service.AuthService
	files    *service.FileService
	teams    *service.TeamService
	admin    *service.AdminService
}

func newApplication(configPath string) (*application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := logger.InitLogger(cfg.Log.Level, cfg.Log.ProductionMode); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	store, err := storage.NewLocal(cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("opening content store: %w", err)
	}

	userRepo := repository.NewUserRepository(gdb)
	teamRepo := repository.NewTeamRepository(gdb)
	memberRepo := repository.NewTeamMemberRepository(gdb)
	fileRepo := repository.NewFileRepository(gdb)
	versionRepo := repository.NewFileVersionRepository(gdb)
	activityRepo := repository.NewActivityRepository(gdb)

	tokens := utils.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Expiration)
	activity := service.NewActivityService(activityRepo)
	access := service.NewAccessService(fileRepo)
	files := service.NewFileService(fileRepo, versionRepo, memberRepo, access, activity, store, cfg.Storage.MaxContentSize)

	return &application{
		cfg:      cfg,
		db:       gdb,
		users:    userRepo,
		activity: activity,
		auth:     service.NewAuthService(userRepo, tokens, activity, cfg.Auth.BcryptCost),
		files:    files,
		teams:    service.NewTeamService(teamRepo, memberRepo, userRepo, activity),
		admin:    service.NewAdminService(userRepo, fileRepo, activityRepo, activity, files),
	}, nil
}

func (a *application) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Sync()
}
