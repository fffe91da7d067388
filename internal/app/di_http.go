package app

import (
	"go.opentelemetry.io/otel/metric"

	authHTTP "github.com/allisson/vaultfs/internal/auth/http"
	filesHTTP "github.com/allisson/vaultfs/internal/files/http"
	foldersHTTP "github.com/allisson/vaultfs/internal/folders/http"
	apphttp "github.com/allisson/vaultfs/internal/http"
)

// HTTPServer returns the API server with the full route table and middleware
// chain wired. This initializes every request-path dependency.
func (c *Container) HTTPServer() (*apphttp.Server, error) {
	return get(c, "httpServer", func() (*apphttp.Server, error) {
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		logger := c.Logger()

		authUC, err := c.AuthUseCase()
		if err != nil {
			return nil, err
		}
		auditUC, err := c.AuditLogUseCase()
		if err != nil {
			return nil, err
		}
		sessionStore, err := c.SessionStore()
		if err != nil {
			return nil, err
		}
		uploadUC, err := c.UploadUseCase()
		if err != nil {
			return nil, err
		}
		fileUC, err := c.FileUseCase()
		if err != nil {
			return nil, err
		}
		quotaUC, err := c.QuotaUseCase()
		if err != nil {
			return nil, err
		}
		folderUC, err := c.FolderUseCase()
		if err != nil {
			return nil, err
		}
		business, err := c.BusinessMetrics()
		if err != nil {
			return nil, err
		}

		cfg := apphttp.RouterConfig{
			AuthHandler:      authHTTP.NewAuthHandler(authUC, auditUC, logger),
			FileHandler:      filesHTTP.NewFileHandler(uploadUC, fileUC, quotaUC, auditUC, business, logger),
			FolderHandler:    foldersHTTP.NewFolderHandler(folderUC, auditUC, logger),
			AuthMiddleware:   authHTTP.AuthenticationMiddleware(sessionStore, logger),
			CSRFMiddleware:   authHTTP.CSRFMiddleware(logger),
			MetricsNamespace: c.config.MetricsNamespace,
			CORSEnabled:      c.config.CORSEnabled,
			CORSAllowOrigins: c.config.CORSAllowOrigins,
		}

		if provider, err := c.MetricsProvider(); err != nil {
			return nil, err
		} else if provider != nil {
			var meterProvider metric.MeterProvider = provider.MeterProvider()
			cfg.MeterProvider = meterProvider
		}

		if c.config.RateLimitEnabled {
			cfg.RateRegister = authHTTP.RateLimitMiddleware(
				authHTTP.NewRateLimiterStore(c.background, authHTTP.ClassRegister),
				nil, auditUC, logger,
			)
			cfg.RateLogin = authHTTP.RateLimitMiddleware(
				authHTTP.NewRateLimiterStore(c.background, authHTTP.ClassLogin),
				nil, auditUC, logger,
			)
			cfg.RatePasswordChange = authHTTP.RateLimitMiddleware(
				authHTTP.NewRateLimiterStore(c.background, authHTTP.ClassPasswordChange),
				nil, auditUC, logger,
			)
			cfg.RateDownload = authHTTP.RateLimitMiddleware(
				authHTTP.NewRateLimiterStore(c.background, authHTTP.ClassDownload),
				filesHTTP.FileIDKey, auditUC, logger,
			)
			cfg.RateGeneral = authHTTP.RateLimitMiddleware(
				authHTTP.NewRateLimiterStore(c.background, authHTTP.GeneralClass(
					c.config.RateLimitGeneralPerSec,
					c.config.RateLimitGeneralBurst,
				)),
				nil, auditUC, logger,
			)
		}

		return apphttp.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger, cfg), nil
	})
}
