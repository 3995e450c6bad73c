package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/repository"
)

// InventoryHandler consultas de stock y del libro por sucursal (protegido).
type InventoryHandler struct {
	queries *ledger.QueryService
	errs    errorResponder
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(queries *ledger.QueryService, errs errorResponder) *InventoryHandler {
	return &InventoryHandler{queries: queries, errs: errs}
}

// ListBranch godoc
// @Summary      Inventario de una sucursal
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  path   string  true   "Sucursal"
// @Param        limit      query  int     false  "Máximo de registros (default 50, máx 200)"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch_id} [get]
func (h *InventoryHandler) ListBranch(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return h.errs.write(c, err)
	}
	list, err := h.queries.ListBranchInventory(c.Context(), c.Params("branch_id"), page.Limit, page.Offset)
	if err != nil {
		return h.errs.write(c, err)
	}
	items := make([]dto.InventoryResponse, len(list))
	for i, r := range list {
		items[i] = dto.ToInventoryResponse(r)
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(items)},
	})
}

// Get godoc
// @Summary      Stock y costo promedio de un SKU
// @Description  Un SKU sin historial devuelve stock 0 y costo 0.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  path  string  true  "Sucursal"
// @Param        sku        path  string  true  "SKU"
// @Success      200  {object}  dto.InventoryResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch_id}/{sku} [get]
func (h *InventoryHandler) Get(c *fiber.Ctx) error {
	rec, err := h.queries.GetInventory(c.Context(), c.Params("sku"), c.Params("branch_id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToInventoryResponse(rec))
}

// Ledger godoc
// @Summary      Filas del libro de un SKU
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  path   string  true   "Sucursal"
// @Param        sku        path   string  true   "SKU"
// @Param        from       query  string  false  "Desde (RFC3339)"
// @Param        to         query  string  false  "Hasta (RFC3339)"
// @Param        limit      query  int     false  "Máximo de filas"
// @Param        offset     query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch_id}/{sku}/ledger [get]
func (h *InventoryHandler) Ledger(c *fiber.Ctx) error {
	page, err := pageFromQuery(c)
	if err != nil {
		return h.errs.write(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return h.errs.write(c, err)
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return h.errs.write(c, err)
	}
	rows, err := h.queries.ListTransactions(c.Context(), repository.TransactionFilter{
		SKU:      c.Params("sku"),
		BranchID: c.Params("branch_id"),
		From:     from,
		To:       to,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	out := make([]dto.LedgerRowResponse, len(rows))
	for i, r := range rows {
		out[i] = dto.ToLedgerRowResponse(r)
	}
	return c.JSON(fiber.Map{
		"rows": out,
		"page": dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Count: len(out)},
	})
}

// Verify godoc
// @Summary      Verificar stock contra la suma de deltas del libro
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  path  string  true  "Sucursal"
// @Param        sku        path  string  true  "SKU"
// @Success      200  {object}  dto.LedgerCheckResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/{branch_id}/{sku}/verify [get]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	check, err := h.queries.VerifyLedger(c.Context(), c.Params("sku"), c.Params("branch_id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.LedgerCheckResponse(*check))
}

// Effective godoc
// @Summary      Posición efectiva (sin vouchers anulados ni sus reversiones)
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        branch_id  path  string  true  "Sucursal"
// @Param        sku        path  string  true  "SKU"
// @Success      200  {object}  dto.EffectivePositionResponse
// @Router       /api/inventory/{branch_id}/{sku}/effective [get]
func (h *InventoryHandler) Effective(c *fiber.Ctx) error {
	pos, err := h.queries.EffectivePosition(c.Context(), c.Params("sku"), c.Params("branch_id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.EffectivePositionResponse(*pos))
}

func pageFromQuery(c *fiber.Ctx) (dto.PageRequest, error) {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 0), Offset: c.QueryInt("offset", 0)}
	if err := dto.Validate(page); err != nil {
		return page, err
	}
	page.DefaultPage()
	return page, nil
}

func timeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(key, "fecha inválida, se espera RFC3339")
	}
	return &t, nil
}
