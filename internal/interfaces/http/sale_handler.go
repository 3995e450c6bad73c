package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/internal/application/settlement"
)

// SaleHandler liquidación de órdenes del POS (protegido).
type SaleHandler struct {
	svc  *settlement.Service
	errs errorResponder
}

// NewSaleHandler construye el handler.
func NewSaleHandler(svc *settlement.Service, errs errorResponder) *SaleHandler {
	return &SaleHandler{svc: svc, errs: errs}
}

// Settle godoc
// @Summary      Liquidar orden
// @Description  Descuenta stock, reparte el descuento manual, calcula el costo de ventas y
// @Description  registra la venta en una sola transacción. Sucursal y cajero salen del token.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SettleSaleRequest  true  "items con precio resuelto"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Settle(c *fiber.Ctx) error {
	userID, branchID := GetUserID(c), GetBranchID(c)
	if userID == "" || branchID == "" {
		return unauthorized(c)
	}
	var in dto.SettleSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	if err := dto.Validate(in); err != nil {
		return h.errs.write(c, err)
	}
	items := make([]settlement.CartItem, len(in.Items))
	for i, it := range in.Items {
		items[i] = settlement.CartItem(it)
	}
	sale, err := h.svc.Checkout(c.Context(), settlement.CheckoutInput{
		OrderID:    in.OrderID,
		BranchID:   branchID,
		CashierID:  userID,
		CustomerID: in.CustomerID,
		Items:      items,
		ManualDiscount: settlement.ManualDiscountInput{
			Amount:  in.ManualDiscountAmount,
			Percent: in.ManualDiscountPercent,
		},
		PromotionRef: in.PromotionRef,
	})
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToSaleResponse(sale))
}

// GetByID godoc
// @Summary      Obtener venta liquidada
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.svc.GetSale(c.Context(), c.Params("id"))
	if err != nil {
		return h.errs.write(c, err)
	}
	return c.JSON(dto.ToSaleResponse(sale))
}
