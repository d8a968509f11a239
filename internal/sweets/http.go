package sweets

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sweetshop/sweetshop-api/internal/auth"
)

// Controller exposes inventory management over HTTP.
type Controller struct {
	repo   Repository
	logger auth.Logger
}

// NewController returns a new sweets Controller
func NewController(repo Repository) *Controller {
	return &Controller{repo: repo}
}

func (a *Controller) WithLogger(logger auth.Logger) *Controller {
	a.logger = logger
	return a
}

// RegisterRoutes mounts the inventory endpoints. Listing and purchasing
// require a session, mutations require the admin role.
func RegisterRoutes(router fiber.Router, ctrl *Controller, protected, adminOnly fiber.Handler) {
	router.Get("/", protected, ctrl.List)
	router.Post("/:id/purchase", protected, ctrl.Purchase)

	router.Post("/", protected, adminOnly, ctrl.Create)
	router.Put("/:id", protected, adminOnly, ctrl.Update)
	router.Delete("/:id", protected, adminOnly, ctrl.Delete)
}

// SweetPayload is the create/update body
type SweetPayload struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	ImageURL string  `json:"image_url"`
}

// Validate will run validation rules
func (r SweetPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.Length(0, 100)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Quantity, validation.Min(0)),
	)
}

func (a *Controller) List(c *fiber.Ctx) error {
	records, err := a.repo.List(c.Context())
	if err != nil {
		return auth.RespondError(c, a.logger, err)
	}

	return c.JSON(records)
}

func (a *Controller) Create(c *fiber.Ctx) error {
	payload := new(SweetPayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	record, err := a.repo.Create(c.Context(), &Sweet{
		Name:     payload.Name,
		Category: payload.Category,
		Price:    payload.Price,
		Quantity: payload.Quantity,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		return auth.RespondError(c, a.logger, err)
	}

	return c.Status(fiber.StatusCreated).JSON(record)
}

func (a *Controller) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid sweet id")
	}

	payload := new(SweetPayload)

	if err := c.BodyParser(payload); err != nil {
		return badRequest(c, "could not parse request body")
	}

	if err := payload.Validate(); err != nil {
		return validationError(c, err)
	}

	record, err := a.repo.Update(c.Context(), &Sweet{
		ID:       id,
		Name:     payload.Name,
		Category: payload.Category,
		Price:    payload.Price,
		Quantity: payload.Quantity,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		return auth.RespondError(c, a.logger, err)
	}

	return c.JSON(record)
}

func (a *Controller) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid sweet id")
	}

	if err := a.repo.Delete(c.Context(), id); err != nil {
		return auth.RespondError(c, a.logger, err)
	}

	return c.JSON(fiber.Map{
		"message": "Sweet deleted",
	})
}

func (a *Controller) Purchase(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid sweet id")
	}

	record, err := a.repo.Purchase(c.Context(), id)
	if err != nil {
		return auth.RespondError(c, a.logger, err)
	}

	return c.JSON(record)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": message,
	})
}

func validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message":    "invalid request payload",
		"validation": err.Error(),
	})
}
