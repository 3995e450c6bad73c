package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/pos-ledger/internal/application/dto"
	"github.com/jhoicas/pos-ledger/pkg/jwt"
)

// RequireBranchAccess verifica que el parámetro de ruta param sea la sucursal del token.
// admin y supervisor consultan cualquier sucursal. Debe usarse DESPUÉS de AuthMiddleware.
func RequireBranchAccess(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch GetRole(c) {
		case jwt.RoleAdmin, jwt.RoleSupervisor:
			return c.Next()
		}
		branchID := GetBranchID(c)
		if branchID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "branch_id no encontrado en el token",
			})
		}
		if c.Params(param) != branchID {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "BRANCH_FORBIDDEN",
				Message: "sin acceso a la sucursal '" + c.Params(param) + "'",
			})
		}
		return c.Next()
	}
}
