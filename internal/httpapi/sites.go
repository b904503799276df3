package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/domain"
	"github.com/seu-repo/csms-ocpp16/internal/ports"
)

// SiteHandler serves the small admin surface a deployment needs before any
// ChargePoint can be provisioned against it: a ChargePoint row's SiteID
// foreign key (see internal/domain/charge_point.go) and a tariff's scope
// (internal/storage/postgres/tariff_order_repository.go's FindActive) both
// assume a Site already exists, but nothing upstream creates one. Grounded
// on the teacher's internal/adapter/http/fiber/handlers/device.go (handler
// struct holding its dependency as a field, fiber.Map error bodies).
type SiteHandler struct {
	repo ports.SiteRepository
	log  *zap.Logger
}

func NewSiteHandler(repo ports.SiteRepository, log *zap.Logger) *SiteHandler {
	return &SiteHandler{repo: repo, log: log}
}

// Register mounts the site admin endpoints under the given fiber.Router
// (typically app.Group("/api/v1/sites")).
func (h *SiteHandler) Register(r fiber.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/:id", h.Get)
}

type createSiteRequest struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Create provisions a Site, assigning it the "site_<uuid8>" id scheme
// original_source/csms/app/core/id_generator.py pins.
func (h *SiteHandler) Create(c *fiber.Ctx) error {
	var req createSiteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Name == "" {
		return badRequest(c, "name is required")
	}

	site := &domain.Site{
		ID:        "site_" + uuid.New().String()[:8],
		Name:      req.Name,
		Address:   req.Address,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Active:    true,
	}

	if err := h.repo.Save(c.Context(), site); err != nil {
		h.log.Error("create site failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(site)
}

func (h *SiteHandler) List(c *fiber.Ctx) error {
	sites, err := h.repo.FindAll(c.Context())
	if err != nil {
		h.log.Error("list sites failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
	}
	return c.JSON(sites)
}

func (h *SiteHandler) Get(c *fiber.Ctx) error {
	site, err := h.repo.FindByID(c.Context(), c.Params("id"))
	if err != nil {
		h.log.Error("get site failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"detail": err.Error()})
	}
	if site == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"detail": "site not found"})
	}
	return c.JSON(site)
}
