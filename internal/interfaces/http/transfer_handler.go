package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// TransferHandler traslados entre sucursales (protegido).
type TransferHandler struct {
	orch *transfer.Orchestrator
	errs errorResponder
}

// NewTransferHandler construye el handler.
func NewTransferHandler(orch *transfer.Orchestrator, errs errorResponder) *TransferHandler {
	return &TransferHandler{orch: orch, errs: errs}
}

// Create godoc
// @Summary      Solicitar traslado
// @Description  Registra el traslado en PENDING; no mueve stock.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateTransferRequest  true  "destination_branch_id, items"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.SourceBranchID == "" {
		in.SourceBranchID = GetBranchID(c)
	}
	if err := dto.Validate(in); err != nil {
		return h.errs.write(c, err)
	}
	items := make([]entity.TransferItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = entity.TransferItem{SKU: it.SKU, Quantity: it.Quantity}
	}
	t, err := h.orch.CreateTransferRequest(c.Context(), transfer.CreateTransferInput{
		SourceBranchID:      in.SourceBranchID,
		DestinationBranchID: in.DestinationBranchID,
		Items:               items,
		Notes:               in.Notes,
		UserID:              userID,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToTransferResponse(t))
}

// ListOutgoing godoc
// @Summary      Traslados salientes de la sucursal del token
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estados separados por coma"
// @Success      200  {array}   dto.TransferResponse
// @Router       /api/transfers/outgoing [get]
func (h *TransferHandler) ListOutgoing(c *fiber.Ctx) error {
	list, err := h.orch.ListOutgoing(c.Context(), GetBranchID(c), statusesQuery(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toTransferResponses(list))
}

// ListIncoming godoc
// @Summary      Traslados entrantes a la sucursal del token
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "Estados separados por coma"
// @Success      200  {array}   dto.TransferResponse
// @Router       /api/transfers/incoming [get]
func (h *TransferHandler) ListIncoming(c *fiber.Ctx) error {
	list, err := h.orch.ListIncoming(c.Context(), GetBranchID(c), statusesQuery(c))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(toTransferResponses(list))
}

// GetByID godoc
// @Summary      Obtener traslado
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) GetByID(c *fiber.Ctx) error {
	t, err := h.orch.Get(c.Context(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// Dispatch godoc
// @Summary      Despachar traslado
// @Description  Descuenta el stock en origen y fija el costo unitario. Requiere PENDING.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/dispatch [post]
func (h *TransferHandler) Dispatch(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	t, err := h.orch.Dispatch(c.Context(), c.Params("id"), userID)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// Receive godoc
// @Summary      Recibir traslado
// @Description  Acredita el stock en destino al costo del despacho. Requiere IN_TRANSIT.
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {object}  dto.TransferResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/receive [post]
func (h *TransferHandler) Receive(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	t, err := h.orch.Receive(c.Context(), c.Params("id"), userID)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// Cancel godoc
// @Summary      Cancelar traslado
// @Description  Solo traslados PENDING; un traslado en tránsito debe recibirse.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true   "ID del traslado"
// @Param        body  body  dto.CancelTransferRequest  false  "Motivo"
// @Success      200   {object}  dto.TransferResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/cancel [post]
func (h *TransferHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CancelTransferRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	if err := dto.Validate(in); err != nil {
		return h.errs.write(c, err)
	}
	t, err := h.orch.Cancel(c.Context(), c.Params("id"), userID, in.Reason)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToTransferResponse(t))
}

// DeliveryNote godoc
// @Summary      Remisión del traslado en PDF
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID del traslado"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/delivery-note [get]
func (h *TransferHandler) DeliveryNote(c *fiber.Ctx) error {
	pdf, err := h.orch.DeliveryNote(c.Context(), c.Params("id"))
	if errors.Is(err, transfer.ErrNoDeliveryNote) {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_CONFIGURED", Message: err.Error()})
	}
	if err != nil {
		return h.errs.write(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+c.Params("id")+`.pdf"`)
	return c.Send(pdf)
}

func statusesQuery(c *fiber.Ctx) []entity.TransferStatus {
	var out []entity.TransferStatus
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, entity.TransferStatus(strings.ToUpper(s)))
		}
	}
	return out
}

func toTransferResponses(list []*entity.StockTransfer) []dto.TransferResponse {
	out := make([]dto.TransferResponse, len(list))
	for i, t := range list {
		out[i] = dto.ToTransferResponse(t)
	}
	return out
}
