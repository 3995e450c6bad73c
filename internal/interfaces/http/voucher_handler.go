package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// VoucherHandler crea, consulta y anula vouchers de inventario (protegido).
type VoucherHandler struct {
	engine  *ledger.VoucherEngine
	queries *ledger.QueryService
	errs    errorResponder
}

// NewVoucherHandler construye el handler.
func NewVoucherHandler(engine *ledger.VoucherEngine, queries *ledger.QueryService, errs errorResponder) *VoucherHandler {
	return &VoucherHandler{engine: engine, queries: queries, errs: errs}
}

// Create godoc
// @Summary      Crear voucher de inventario
// @Description  Entradas (quantity > 0), salidas (quantity < 0) o ajustes (actual_quantity).
// @Description  Un ajuste sin diferencias responde 200 con no_changes=true y no crea voucher.
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateVoucherRequest  true  "type, items; branch_id por defecto la del token"
// @Success      201   {object}  dto.CreateVoucherResponse
// @Success      200   {object}  dto.CreateVoucherResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/vouchers [post]
func (h *VoucherHandler) Create(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CreateVoucherRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if in.BranchID == "" {
		in.BranchID = GetBranchID(c)
	}
	if err := dto.Validate(in); err != nil {
		return h.errs.write(c, err)
	}
	input := ledger.CreateVoucherInput{
		Type:      entity.VoucherType(in.Type),
		BranchID:  in.BranchID,
		UserID:    userID,
		Items:     in.LineItems(),
		Notes:     in.Notes,
		Reference: in.Reference,
		Metadata:  in.Metadata,
	}
	if in.Date != nil {
		input.Date = in.Date.UTC()
	}
	res, err := h.engine.CreateVoucher(c.Context(), input)
	if err != nil {
		return h.errs.write(c, err)
	}
	if res.NoChanges {
		return c.JSON(dto.CreateVoucherResponse{NoChanges: true})
	}
	v := dto.ToVoucherResponse(res.Voucher)
	return c.Status(fiber.StatusCreated).JSON(dto.CreateVoucherResponse{Voucher: &v})
}

// List godoc
// @Summary      Listar vouchers
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        branch_id  query  string  false  "Sucursal (default la del token)"
// @Param        type       query  string  false  "Tipos separados por coma"
// @Param        status     query  string  false  "COMPLETED o CANCELLED"
// @Param        limit      query  int     false  "Máximo de registros"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/vouchers [get]
func (h *VoucherHandler) List(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return h.errs.write(c, err)
	}
	f := repository.VoucherFilter{
		BranchID: c.Query("branch_id", GetBranchID(c)),
		Status:   entity.VoucherStatus(c.Query("status")),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for _, t := range strings.Split(c.Query("type"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			f.Types = append(f.Types, entity.VoucherType(t))
		}
	}
	list, err := h.queries.ListVouchers(c.Context(), f)
	if err != nil {
		return h.errs.write(c, err)
	}
	out := make([]dto.VoucherResponse, len(list))
	for i, v := range list {
		out[i] = dto.ToVoucherResponse(v)
	}
	return c.JSON(fiber.Map{
		"vouchers": out,
		"page":     dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(out)},
	})
}

// GetByID godoc
// @Summary      Obtener voucher
// @Tags         vouchers
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del voucher"
// @Success      200  {object}  dto.VoucherResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/vouchers/{id} [get]
func (h *VoucherHandler) GetByID(c *fiber.Ctx) error {
	v, err := h.queries.GetVoucher(c.Context(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToVoucherResponse(v))
}

// Cancel godoc
// @Summary      Anular voucher
// @Description  Crea la reversión (REVERSAL_<tipo>) y marca el original como CANCELLED. Solo admin o supervisor.
// @Tags         vouchers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true   "ID del voucher"
// @Param        body  body  dto.CancelVoucherRequest  false  "Motivo"
// @Success      200   {object}  dto.VoucherResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/vouchers/{id}/cancel [post]
func (h *VoucherHandler) Cancel(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.CancelVoucherRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return invalidBody(c)
		}
	}
	if err := dto.Validate(in); err != nil {
		return h.errs.write(c, err)
	}
	reversal, err := h.engine.CancelVoucher(c.Context(), c.Params("id"), userID, in.Reason)
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToVoucherResponse(reversal))
}
