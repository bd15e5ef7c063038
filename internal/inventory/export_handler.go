package inventory

import (
	"granja-backend/internal/api"
	"granja-backend/internal/config"
	"granja-backend/internal/database"
	"granja-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

const (
	itemsSheet  = "Insumos"
	ledgerSheet = "Movimientos"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// BuildStockWorkbook writes the current stock and the full ledger into one workbook.
func BuildStockWorkbook(items []models.SupplyItem, events []models.LedgerEvent) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ledgerSheet); err != nil {
		return nil, err
	}

	names := make(map[uint]string, len(items))
	rows := [][]interface{}{{"ID", "Nombre", "Tipo", "Unidad", "Stock"}}
	for _, i := range items {
		names[i.ID] = i.Name
		qty, _ := i.QuantityOnHand.Float64()
		rows = append(rows, []interface{}{i.ID, i.Name, i.Type, i.Unit, qty})
	}
	if err := writeRows(f, itemsSheet, rows); err != nil {
		return nil, err
	}

	rows = [][]interface{}{{"Fecha", "Insumo", "Tipo", "Modo", "Cantidad", "Diferencia", "Stock anterior", "Stock posterior", "Motivo"}}
	for _, e := range events {
		name, ok := names[e.SupplyItemID]
		if !ok {
			name = "(eliminado)"
		}
		qty, _ := e.Quantity.Float64()
		delta, _ := e.Delta.Float64()
		before, _ := e.StockBefore.Float64()
		after, _ := e.StockAfter.Float64()
		rows = append(rows, []interface{}{
			api.FormatTimestamp(e.CreatedAt), name, string(e.Kind), string(e.Mode),
			qty, delta, before, after, e.Reason,
		})
	}
	if err := writeRows(f, ledgerSheet, rows); err != nil {
		return nil, err
	}

	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// GET /api/supply-items/export
func ExportStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []models.SupplyItem
		if err := database.DB.Order("name asc").Find(&items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los insumos")
		}
		var events []models.LedgerEvent
		if err := database.DB.Order("id asc").Find(&events).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron leer los movimientos")
		}

		f, err := BuildStockWorkbook(items, events)
		if err != nil {
			config.LogError(config.GetLogger(), "inventory", "ExportStockHandler", "build workbook", nil, err)
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el archivo")
		}
		defer f.Close()

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el archivo")
		}

		c.Set(fiber.HeaderContentType, xlsxMIME)
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="inventario.xlsx"`)
		return c.Send(buf.Bytes())
	}
}
