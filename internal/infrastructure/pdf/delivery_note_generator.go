// Package pdf genera la remisión de traslado entre sucursales.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: REMISIÓN DE TRASLADO │  N° Traslado + Estado        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN → DESTINO + notas                                   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Cantidad | Costo Unit. | Costo total          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: unidades / costo trasladado                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FIRMAS: despacho / recepción + QR con el ID               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/pos-ledger/internal/application/transfer"
	"github.com/jhoicas/pos-ledger/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var statusLabels = map[entity.TransferStatus]string{
	entity.TransferPending:   "PENDIENTE",
	entity.TransferInTransit: "EN TRÁNSITO",
	entity.TransferCompleted: "RECIBIDO",
	entity.TransferCancelled: "CANCELADO",
}

// ── Generator ─────────────────────────────────────────────────────────────────

var _ transfer.DeliveryNoteGenerator = (*MarotoDeliveryNoteGenerator)(nil)

// MarotoDeliveryNoteGenerator implementa transfer.DeliveryNoteGenerator usando Maroto v2.
type MarotoDeliveryNoteGenerator struct {
	printer *message.Printer
}

// NewMarotoDeliveryNoteGenerator construye el generador (formato numérico es-CO).
func NewMarotoDeliveryNoteGenerator() *MarotoDeliveryNoteGenerator {
	return &MarotoDeliveryNoteGenerator{printer: message.NewPrinter(language.MustParse("es-CO"))}
}

// GenerateDeliveryNote genera el PDF y devuelve sus bytes.
func (g *MarotoDeliveryNoteGenerator) GenerateDeliveryNote(_ context.Context, t *entity.StockTransfer) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Remisión de traslado "+t.ID, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(branchesRow(t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(g.tableDetailRows(t.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(g.totalsRow(t.Items))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(stampsRow(t))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar remisión: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(t *entity.StockTransfer) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New("REMISIÓN DE TRASLADO", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Creado por: "+t.CreatedBy, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(t.ID, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 1,
			}),
			text.New("Estado: "+nonEmpty(statusLabels[t.Status], string(t.Status)), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 7,
			}),
			text.New("Fecha: "+t.CreatedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 12, Color: colorGray,
			}),
		),
	)
}

func branchesRow(t *entity.StockTransfer) core.Row {
	return row.New(16).Add(
		col.New(6).Add(
			text.New("SUCURSAL ORIGEN", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(t.SourceBranchID, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
		),
		col.New(6).Add(
			text.New("SUCURSAL DESTINO", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(t.DestinationBranchID, props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New("Notas: "+nonEmpty(t.Notes, "—"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("SKU", 5, align.Left),
		h("Cantidad", 2, align.Center),
		h("Costo Unit.", 2, align.Right),
		h("Costo total", 3, align.Right),
	)
}

// tableDetailRows una fila por línea. Antes del despacho el costo aún no está fijado.
func (g *MarotoDeliveryNoteGenerator) tableDetailRows(items []entity.TransferItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		unit, total := "—", "—"
		if it.UnitCost != nil {
			unit = g.money(*it.UnitCost)
			total = g.money(it.UnitCost.Mul(decimal.NewFromInt(it.Quantity)))
		}
		result = append(result, row.New(7).Add(
			col.New(5).Add(text.New(it.SKU, props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(g.printer.Sprintf("%d", it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(unit, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(total, props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func (g *MarotoDeliveryNoteGenerator) totalsRow(items []entity.TransferItem) core.Row {
	var units int64
	cost := decimal.Zero
	costed := true
	for _, it := range items {
		units += it.Quantity
		if it.UnitCost == nil {
			costed = false
			continue
		}
		cost = cost.Add(it.UnitCost.Mul(decimal.NewFromInt(it.Quantity)))
	}
	costText := "—"
	if costed {
		costText = g.money(cost)
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Color: colorPrimary})
	}
	return row.New(14).Add(
		col.New(6),
		col.New(3).Add(label("Unidades:"), text.New("Costo trasladado:", props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: 6,
		})),
		col.New(3).Add(value(g.printer.Sprintf("%d", units)), text.New(costText, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 1, Top: 6, Color: colorPrimary,
		})),
	)
}

// stampsRow sellos de despacho y recepción, y QR con el ID para escanear en la sucursal destino.
func stampsRow(t *entity.StockTransfer) core.Row {
	return row.New(40).Add(
		col.New(4).Add(stampText("DESPACHO", t.DispatchInfo)...),
		col.New(4).Add(stampText("RECEPCIÓN", t.ReceiptInfo)...),
		col.New(4).Add(code.NewQr(t.ID, props.Rect{Percent: 80, Center: true})),
	)
}

func stampText(title string, s *entity.TransferStamp) []core.Component {
	out := []core.Component{
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
	}
	if s == nil {
		return append(out, text.New("Pendiente", props.Text{Size: 8, Top: 7, Color: colorGray}))
	}
	return append(out,
		text.New("Usuario: "+s.UserID, props.Text{Size: 8, Top: 7}),
		text.New("Fecha: "+s.At.Format("02/01/2006 15:04"), props.Text{Size: 8, Top: 12, Color: colorGray}),
		text.New("Voucher: "+s.VoucherID, props.Text{Size: 7, Top: 17, Color: colorGray}),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// money formatea sin decimales con separador de miles: 25000 → "$25.000".
func (g *MarotoDeliveryNoteGenerator) money(d decimal.Decimal) string {
	return g.printer.Sprintf("$%d", d.Round(0).IntPart())
}
