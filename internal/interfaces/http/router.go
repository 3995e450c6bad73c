package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/ledger"
	"github.com/jhoicas/pos-ledger/internal/application/settlement"
	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/pkg/jwt"
	"github.com/jhoicas/pos-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine     *ledger.VoucherEngine
	Queries    *ledger.QueryService
	Transfers  *transfer.Orchestrator
	Settlement *settlement.Service
	JWTSecret  string
	JWTIssuer  string
	Log        *logger.Logger
}

// Router registra las rutas de la API. /health se registra en main.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	errs := errorResponder{log: log.Component("http")}

	// Todas las rutas de /api requieren Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	// Existencias y libro (por sucursal)
	inventoryHandler := NewInventoryHandler(deps.Queries, errs)
	branch := RequireBranchAccess("branch_id")
	inv := api.Group("/inventory")
	inv.Get("/:branch_id", branch, inventoryHandler.ListBranch)
	inv.Get("/:branch_id/:sku", branch, inventoryHandler.Get)
	inv.Get("/:branch_id/:sku/ledger", branch, inventoryHandler.Ledger)
	inv.Get("/:branch_id/:sku/verify", branch, inventoryHandler.Verify)
	inv.Get("/:branch_id/:sku/effective", branch, inventoryHandler.Effective)

	// Vouchers
	voucherHandler := NewVoucherHandler(deps.Engine, deps.Queries, errs)
	vouchers := api.Group("/vouchers")
	vouchers.Post("/", voucherHandler.Create)
	vouchers.Get("/", voucherHandler.List)
	vouchers.Get("/:id", voucherHandler.GetByID)
	vouchers.Post("/:id/cancel", RequireRole(jwt.RoleAdmin, jwt.RoleSupervisor), voucherHandler.Cancel)

	// Traslados entre sucursales
	transferHandler := NewTransferHandler(deps.Transfers, errs)
	transfers := api.Group("/transfers")
	transfers.Post("/", transferHandler.Create)
	transfers.Get("/outgoing", transferHandler.ListOutgoing)
	transfers.Get("/incoming", transferHandler.ListIncoming)
	transfers.Get("/:id", transferHandler.GetByID)
	transfers.Get("/:id/delivery-note", transferHandler.DeliveryNote)
	transfers.Post("/:id/dispatch", transferHandler.Dispatch)
	transfers.Post("/:id/receive", transferHandler.Receive)
	transfers.Post("/:id/cancel", transferHandler.Cancel)

	// Ventas del POS
	saleHandler := NewSaleHandler(deps.Settlement, errs)
	sales := api.Group("/sales")
	sales.Post("/", saleHandler.Settle)
	sales.Get("/:id", saleHandler.GetByID)
}
