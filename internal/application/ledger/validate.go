package ledger

import (
	"fmt"

	"github.com/jhoicas/pos-ledger/internal/domain"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
	"github.com/jhoicas/pos-ledger/internal/domain/inventory"
)

// validateVoucherInput rechaza la petición antes de abrir la transacción.
func validateVoucherInput(in CreateVoucherInput) error {
	switch {
	case !in.Type.Valid():
		return domain.NewValidationError("type", fmt.Sprintf("tipo de voucher desconocido %q", in.Type))
	case in.BranchID == "":
		return domain.NewValidationError("branch_id", "es obligatorio")
	case in.UserID == "":
		return domain.NewValidationError("user_id", "es obligatorio")
	case len(in.Items) == 0:
		return domain.NewValidationError("items", "el voucher no tiene líneas")
	}

	seen := make(map[string]bool, len(in.Items))
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		if it.SKU == "" {
			return domain.NewValidationError(field+".sku", "es obligatorio")
		}
		if seen[it.SKU] {
			return domain.NewValidationError(field+".sku", fmt.Sprintf("SKU %s repetido en el voucher", it.SKU))
		}
		seen[it.SKU] = true

		if it.Quantity > inventory.MaxStock || it.Quantity < -inventory.MaxStock {
			return domain.NewValidationError(field+".quantity", fmt.Sprintf("fuera de rango (máximo %d)", inventory.MaxStock))
		}
		if it.ActualQuantity != nil && *it.ActualQuantity > inventory.MaxStock {
			return domain.NewValidationError(field+".actual_quantity", fmt.Sprintf("fuera de rango (máximo %d)", inventory.MaxStock))
		}
		if it.PurchasePrice != nil && it.PurchasePrice.IsNegative() {
			return domain.NewValidationError(field+".purchase_price", "debe ser >= 0")
		}

		switch {
		case in.Type.IsReversal():
			if it.Quantity == 0 {
				return domain.NewValidationError(field+".quantity", "una reversión no puede tener delta 0")
			}
		case in.Type.IsAdjustment():
			if it.ActualQuantity == nil {
				return domain.NewValidationError(field+".actual_quantity", "es obligatorio en ajustes")
			}
			if *it.ActualQuantity < 0 {
				return domain.NewValidationError(field+".actual_quantity", "debe ser >= 0")
			}
		case in.Type == entity.VoucherGoodsReceipt:
			if it.Quantity <= 0 {
				return domain.NewValidationError(field+".quantity", "una entrada debe ser > 0")
			}
		case in.Type == entity.VoucherGoodsIssue:
			if it.Quantity >= 0 {
				return domain.NewValidationError(field+".quantity", "una salida debe ser < 0")
			}
		}
	}
	return nil
}
