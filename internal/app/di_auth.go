package app

import (
	"fmt"

	authRepository "github.com/allisson/vaultfs/internal/auth/repository"
	authService "github.com/allisson/vaultfs/internal/auth/service"
	authUsecase "github.com/allisson/vaultfs/internal/auth/usecase"
	userRepository "github.com/allisson/vaultfs/internal/user/repository"
	userUsecase "github.com/allisson/vaultfs/internal/user/usecase"
)

// PasswordService returns the Argon2id password verifier service.
func (c *Container) PasswordService() (authService.PasswordService, error) {
	return get(c, "passwordService", func() (authService.PasswordService, error) {
		return authService.NewPasswordService(), nil
	})
}

// TokenService returns the opaque token generator.
func (c *Container) TokenService() (authService.TokenService, error) {
	return get(c, "tokenService", func() (authService.TokenService, error) {
		return authService.NewTokenService(), nil
	})
}

// SessionStore returns the in-process session store.
func (c *Container) SessionStore() (authService.SessionStore, error) {
	return get(c, "sessionStore", func() (authService.SessionStore, error) {
		return authService.NewSessionStore(), nil
	})
}

// UserRepository returns the user repository.
func (c *Container) UserRepository() (*userRepository.PostgreSQLUserRepository, error) {
	return get(c, "userRepository", func() (*userRepository.PostgreSQLUserRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		switch c.config.DBDriver {
		case "postgres":
			return userRepository.NewPostgreSQLUserRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
}

// QuotaUseCase returns the storage quota engine.
func (c *Container) QuotaUseCase() (userUsecase.QuotaUseCase, error) {
	return get(c, "quotaUseCase", func() (userUsecase.QuotaUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		userRepo, err := c.UserRepository()
		if err != nil {
			return nil, err
		}
		fileRepo, err := c.FileRepository()
		if err != nil {
			return nil, err
		}
		return userUsecase.NewQuotaUseCase(txManager, userRepo, fileRepo, c.PlanQuotas()), nil
	})
}

// AuditLogRepository returns the audit log repository.
func (c *Container) AuditLogRepository() (authUsecase.AuditLogRepository, error) {
	return get(c, "auditLogRepository", func() (authUsecase.AuditLogRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		switch c.config.DBDriver {
		case "postgres":
			return authRepository.NewPostgreSQLAuditLogRepository(db), nil
		default:
			return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
}

// AuditLogUseCase returns the audit recording use case.
func (c *Container) AuditLogUseCase() (authUsecase.AuditLogUseCase, error) {
	return get(c, "auditLogUseCase", func() (authUsecase.AuditLogUseCase, error) {
		auditRepo, err := c.AuditLogRepository()
		if err != nil {
			return nil, err
		}
		return authUsecase.NewAuditLogUseCase(auditRepo, c.Logger()), nil
	})
}

// AuthUseCase returns the authentication use case.
func (c *Container) AuthUseCase() (authUsecase.AuthUseCase, error) {
	return get(c, "authUseCase", func() (authUsecase.AuthUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, err
		}
		userRepo, err := c.UserRepository()
		if err != nil {
			return nil, err
		}
		passwordService, err := c.PasswordService()
		if err != nil {
			return nil, err
		}
		tokenService, err := c.TokenService()
		if err != nil {
			return nil, err
		}
		sessionStore, err := c.SessionStore()
		if err != nil {
			return nil, err
		}
		keyManager, err := c.KeyManager()
		if err != nil {
			return nil, err
		}
		keyDeriver, err := c.KeyDeriver()
		if err != nil {
			return nil, err
		}
		kekUseCase, err := c.KekUseCase()
		if err != nil {
			return nil, err
		}
		return authUsecase.NewAuthUseCase(
			txManager,
			userRepo,
			passwordService,
			tokenService,
			sessionStore,
			keyManager,
			keyDeriver,
			kekUseCase,
			c.PlanQuotas(),
			c.config.SessionTTL,
		), nil
	})
}
