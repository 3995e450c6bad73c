package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// Prefijos de ID por tipo de voucher.
const (
	prefixReceipt    = "GR"
	prefixIssue      = "GI"
	prefixAdjustment = "ADJ"
	prefixReversal   = "REV"
	prefixTransfer   = "TRF"
)

// randomSuffix devuelve n caracteres hexadecimales en mayúscula de un UUIDv4.
func randomSuffix(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s[:n]
}

// NewVoucherID genera un ID único con el prefijo del tipo: GR-, GI-, ADJ-, REV-.
func NewVoucherID(t entity.VoucherType) string {
	prefix := prefixAdjustment
	switch {
	case t.IsReversal():
		prefix = prefixReversal
	case t == entity.VoucherGoodsReceipt:
		prefix = prefixReceipt
	case t == entity.VoucherGoodsIssue:
		prefix = prefixIssue
	}
	return prefix + "-" + randomSuffix(16)
}

// NewTransferID genera TRF-YYYYMMDD-XXXXXXXX.
func NewTransferID(now time.Time) string {
	return prefixTransfer + "-" + now.UTC().Format("20060102") + "-" + randomSuffix(8)
}
