// Package httpapi implements the operator-facing REST surface: six
// endpoints under /api/v1/ocpp that translate a JSON request into an
// outbound OCPP CALL via transport.Manager.SendMessage and wait for the
// charger's reply through the shared pending registry.
//
// Grounded on the teacher's internal/adapter/http/fiber/handlers
// (DeviceCommandHandler: one handler struct holding its dependency as a
// field, c.BodyParser + manual required-field checks, IsConnected checked
// before dispatch) and on original_source/csms/app/ocpp/message_sender.py's
// send_call, which is the source of the {"success", "data"/"detail",
// "transport"} response envelope.
//
// Unauthenticated by design: spec.md names operator authentication as an
// explicit non-goal, so this package carries no session/JWT middleware —
// it assumes a trusted network or an out-of-scope gateway in front of it.
package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/csms-ocpp16/internal/ocppwire"
	"github.com/seu-repo/csms-ocpp16/internal/transport"
)

// Handler serves the six operator REST endpoints from spec.md §6.
type Handler struct {
	manager *transport.Manager
	log     *zap.Logger
}

func NewHandler(manager *transport.Manager, log *zap.Logger) *Handler {
	return &Handler{manager: manager, log: log}
}

// Register mounts every endpoint under the given fiber.Router (typically
// app.Group("/api/v1/ocpp")).
func (h *Handler) Register(r fiber.Router) {
	r.Post("/remote-start-transaction", h.RemoteStartTransaction)
	r.Post("/remote-stop-transaction", h.RemoteStopTransaction)
	r.Post("/change-configuration", h.ChangeConfiguration)
	r.Post("/get-configuration", h.GetConfiguration)
	r.Post("/reset", h.Reset)
	r.Post("/unlock-connector", h.UnlockConnector)
}

type remoteStartRequest struct {
	ChargePointID string `json:"chargePointId"`
	IDTag         string `json:"idTag"`
	ConnectorID   *int   `json:"connectorId,omitempty"`
}

func (h *Handler) RemoteStartTransaction(c *fiber.Ctx) error {
	var req remoteStartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" || req.IDTag == "" {
		return badRequest(c, "chargePointId and idTag are required")
	}

	payload := fiber.Map{"idTag": req.IDTag}
	if req.ConnectorID != nil {
		payload["connectorId"] = *req.ConnectorID
	}

	return h.send(c, req.ChargePointID, "RemoteStartTransaction", payload)
}

type remoteStopRequest struct {
	ChargePointID string `json:"chargePointId"`
	TransactionID int    `json:"transactionId"`
}

func (h *Handler) RemoteStopTransaction(c *fiber.Ctx) error {
	var req remoteStopRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" {
		return badRequest(c, "chargePointId is required")
	}

	return h.send(c, req.ChargePointID, "RemoteStopTransaction", fiber.Map{
		"transactionId": req.TransactionID,
	})
}

type changeConfigurationRequest struct {
	ChargePointID string `json:"chargePointId"`
	Key           string `json:"key"`
	Value         string `json:"value"`
}

func (h *Handler) ChangeConfiguration(c *fiber.Ctx) error {
	var req changeConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" || req.Key == "" {
		return badRequest(c, "chargePointId and key are required")
	}

	return h.send(c, req.ChargePointID, "ChangeConfiguration", fiber.Map{
		"key":   req.Key,
		"value": req.Value,
	})
}

type getConfigurationRequest struct {
	ChargePointID string   `json:"chargePointId"`
	Keys          []string `json:"keys,omitempty"`
}

func (h *Handler) GetConfiguration(c *fiber.Ctx) error {
	var req getConfigurationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" {
		return badRequest(c, "chargePointId is required")
	}

	payload := fiber.Map{}
	if len(req.Keys) > 0 {
		payload["key"] = req.Keys
	}

	return h.send(c, req.ChargePointID, "GetConfiguration", payload)
}

type resetRequest struct {
	ChargePointID string `json:"chargePointId"`
	Type          string `json:"type"`
}

func (h *Handler) Reset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" {
		return badRequest(c, "chargePointId is required")
	}
	if req.Type != "Hard" && req.Type != "Soft" {
		return badRequest(c, `type must be "Hard" or "Soft"`)
	}

	return h.send(c, req.ChargePointID, "Reset", fiber.Map{"type": req.Type})
}

type unlockConnectorRequest struct {
	ChargePointID string `json:"chargePointId"`
	ConnectorID   int    `json:"connectorId"`
}

func (h *Handler) UnlockConnector(c *fiber.Ctx) error {
	var req unlockConnectorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ChargePointID == "" {
		return badRequest(c, "chargePointId is required")
	}

	return h.send(c, req.ChargePointID, "UnlockConnector", fiber.Map{
		"connectorId": req.ConnectorID,
	})
}

// send dispatches action to chargePointID and renders the reply (or
// failure) into spec.md §6's response envelope: 200 {success, data} on a
// CALLRESULT, 503 {detail} when the charger is not connected on any
// transport, 504 {detail} on a registry timeout, and 502 for any other
// dispatch failure.
func (h *Handler) send(c *fiber.Ctx, chargePointID, action string, payload interface{}) error {
	result, transportName, err := h.manager.SendMessage(c.Context(), chargePointID, action, payload, "", transport.DefaultSendTimeout)
	if err != nil {
		return h.renderError(c, chargePointID, action, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"data":      result,
		"transport": transportName,
	})
}

func (h *Handler) renderError(c *fiber.Ctx, chargePointID, action string, err error) error {
	var ocppErr *ocppwire.OCPPError
	if errors.As(err, &ocppErr) {
		switch ocppErr.Code {
		case ocppwire.ErrNotConnected, ocppwire.ErrConnectionClosed:
			h.log.Warn("outbound call rejected: charger unreachable",
				zap.String("charge_point_id", chargePointID),
				zap.String("action", action),
				zap.String("code", ocppErr.Code),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"detail": ocppErr.Description,
			})
		case ocppwire.ErrRequestTimeout:
			return c.Status(fiber.StatusGatewayTimeout).JSON(fiber.Map{
				"detail": ocppErr.Description,
			})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"detail": ocppErr.Error(),
			})
		}
	}

	h.log.Error("outbound call failed",
		zap.String("charge_point_id", chargePointID),
		zap.String("action", action),
		zap.Error(err),
	)
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"detail": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"detail": msg})
}
