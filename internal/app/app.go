package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sweetshop/sweetshop-api/internal/auth"
	"github.com/sweetshop/sweetshop-api/internal/config"
	"github.com/sweetshop/sweetshop-api/internal/mailer"
	"github.com/sweetshop/sweetshop-api/internal/sweets"
)

// Session tokens expire one day after issuance.
const tokenExpirationHours = 24

// App wires the storefront service together.
type App struct {
	cfg    config.Config
	db     *bun.DB
	server *fiber.App
	logger auth.Logger
}

// New builds the application: database, mail transport, token service,
// and HTTP routes.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := NewLogger("APP")

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		return nil, err
	}

	smtp, err := mailer.New(mailer.Config{
		Host:          cfg.SMTPHost,
		Port:          cfg.SMTPPort,
		User:          cfg.MailUser,
		Pass:          cfg.MailPass,
		From:          cfg.MailUser,
		ApproverEmail: cfg.ApproverEmail,
	})
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenService([]byte(cfg.SigningKey), tokenExpirationHours, "sweetshop-api", logger)

	verifier, err := newAssertionVerifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	repo := auth.NewRepositoryManager(db)

	authService := auth.NewService(repo, tokens, smtp, verifier).
		WithLogger(logger).
		WithResetBaseURL(cfg.ResetBaseURL)

	server := fiber.New(fiber.Config{
		AppName:               "sweetshop-api",
		DisableStartupMessage: true,
	})

	server.Use(recover.New())
	server.Use(helmet.New())
	server.Use(cors.New())

	server.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Sweet Shop API is running")
	})

	authCtrl := auth.NewController(authService).WithLogger(logger)
	auth.RegisterRoutes(server.Group("/api/auth"), authCtrl)

	sweetsCtrl := sweets.NewController(sweets.NewRepository(db)).WithLogger(logger)
	sweets.RegisterRoutes(
		server.Group("/api/sweets"),
		sweetsCtrl,
		auth.Protected(tokens, logger),
		auth.RequireAdmin(),
	)

	return &App{
		cfg:    cfg,
		db:     db,
		server: server,
		logger: logger,
	}, nil
}

// Run starts the HTTP listener and blocks until shutdown.
func (a *App) Run() error {
	return a.server.Listen(":" + a.cfg.Port)
}

// Shutdown drains in-flight requests and closes the database.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.server.ShutdownWithContext(ctx); err != nil {
		return err
	}
	return a.db.Close()
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not open database")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func createTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*auth.User)(nil),
		(*auth.PasswordReset)(nil),
		(*sweets.Sweet)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "could not create table")
		}
	}

	return nil
}

func newAssertionVerifier(cfg config.Config, logger auth.Logger) (auth.AssertionVerifier, error) {
	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set, Google login disabled")
		return disabledVerifier{}, nil
	}
	return auth.NewGoogleVerifier(cfg.GoogleClientID, logger)
}

// disabledVerifier rejects every assertion. Used when no external identity
// provider is configured.
type disabledVerifier struct{}

func (disabledVerifier) Verify(ctx context.Context, credential string) (*auth.ExternalIdentity, error) {
	return nil, auth.ErrInvalidAssertion
}

// NewLogger returns the default structured-ish logger used across the app.
func NewLogger(scope string) auth.Logger {
	return stdLogger{scope: scope}
}

type stdLogger struct {
	scope string
}

func (l stdLogger) Debug(format string, args ...any) { l.print("DBG", format, args...) }
func (l stdLogger) Info(format string, args ...any)  { l.print("INF", format, args...) }
func (l stdLogger) Warn(format string, args ...any)  { l.print("WRN", format, args...) }
func (l stdLogger) Error(format string, args ...any) { l.print("ERR", format, args...) }

func (l stdLogger) print(level, format string, args ...any) {
	if len(format) == 0 || format[len(format)-1] != '\n' {
		format += "\n"
	}
	fmt.Printf("["+level+"] "+l.scope+" "+format, args...)
}
