package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

// Controller exposes the auth lifecycle over HTTP.
type Controller struct {
	service *Service
	logger  Logger
}

// NewController returns a new auth Controller
func NewController(service *Service) *Controller {
	return &Controller{
		service: service,
		logger:  defLogger{},
	}
}

func (a *Controller) WithLogger(logger Logger) *Controller {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// RegisterRoutes mounts the auth endpoints on the given router group.
func RegisterRoutes(router fiber.Router, ctrl *Controller) {
	router.Post("/register", ctrl.Register)
	router.Post("/verify-otp", ctrl.VerifyOTP)
	router.Post("/login", ctrl.Login)
	router.Post("/google", ctrl.Google)
	router.Post("/forgot-password", ctrl.ForgotPassword)
	router.Put("/reset-password/:token", ctrl.ResetPassword)
}

// RegisterRequest payload
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.Role, validation.In(RoleCustomer, RoleAdmin)),
	)
}

func (a *Controller) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	result, err := a.service.Register(c.Context(), payload.Email, payload.Password, payload.Role)
	if err != nil {
		return a.respondError(c, err)
	}

	if result.PendingVerification {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "OTP_SENT",
			"email":   result.User.Email,
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token": result.Token,
		"user":  userPayload(result.User),
	})
}

// VerifyOTPRequest payload
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// Validate will run validation rules
func (r VerifyOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *Controller) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	result, err := a.service.VerifyOTP(c.Context(), payload.Email, payload.OTP)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": result.Token,
		"user":  userPayload(result.User),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	result, err := a.service.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": result.Token,
		"user":  userPayload(result.User),
	})
}

// GoogleRequest payload
type GoogleRequest struct {
	Credential string `json:"credential"`
}

// Validate will run validation rules
func (r GoogleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Credential, validation.Required),
	)
}

func (a *Controller) Google(c *fiber.Ctx) error {
	payload := new(GoogleRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	result, err := a.service.LoginWithAssertion(c.Context(), payload.Credential)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"token": result.Token,
		"user":  userPayload(result.User),
	})
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *Controller) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	if err := a.service.ForgotPassword(c.Context(), payload.Email); err != nil {
		return a.respondError(c, err)
	}

	// Uniform response whether or not the account exists.
	return c.JSON(fiber.Map{
		"message": "If that email is registered, a reset link has been sent",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *Controller) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		return a.badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationError(c, err)
	}

	confirm := payload.ConfirmPassword
	if confirm == "" {
		// Clients that send a single password field confirm implicitly.
		confirm = payload.Password
	}

	err := a.service.ResetPassword(c.Context(), c.Params("token"), payload.Password, confirm)
	if err != nil {
		return a.respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password has been reset",
	})
}

func userPayload(user *User) fiber.Map {
	return fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"role":  user.Role,
	}
}

func (a *Controller) badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
	})
}

func (a *Controller) validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message":    "invalid request payload",
		"validation": err.Error(),
	})
}

func (a *Controller) respondError(c *fiber.Ctx, err error) error {
	return RespondError(c, a.logger, err)
}

// RespondError maps a rich error onto an HTTP response. Internal failures
// are logged and masked.
func RespondError(c *fiber.Ctx, logger Logger, err error) error {
	if logger == nil {
		logger = defLogger{}
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	message := richErr.Message
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed with category %s: %v", richErr.Category, err)
		message = "Server error"
	}

	body := fiber.Map{"message": message}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.Status(status).JSON(body)
}
