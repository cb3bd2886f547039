package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Aashish23092/conciliador/dto"
)

const workbookSheet = "Expedientes"

// Columns of the workbook, in write order.
var workbookColumns = []string{
	"CaseId", "OrderId", "LineNo", "Price", "Tax", "Description", "RequiredDate",
	"Status", "InvoiceNo", "Deliveries", "ClientPart", "Type", "Quantity", "Subtotal",
}

// Header aliases accepted when reading workbooks written by older tools.
var columnAliases = map[string]string{
	"nº de pieza":        "CaseId",
	"no de pieza":        "CaseId",
	"numero de pedido":   "OrderId",
	"numero de linea":    "LineNo",
	"precio por unidad":  "Price",
	"impuesto":           "Tax",
	"descripcion":        "Description",
	"fecha":              "RequiredDate",
	"status":             "Status",
	"no factura":         "InvoiceNo",
	"numero de repartos": "Deliveries",
	"pieza de cliente":   "ClientPart",
	"tipo":               "Type",
	"cantidad":           "Quantity",
	"subtotal":           "Subtotal",
}

// WorkbookClient reads and writes the xlsx table of order lines.
type WorkbookClient struct{}

func NewWorkbookClient() *WorkbookClient {
	return &WorkbookClient{}
}

func canonicalColumn(header string) string {
	h := strings.TrimSpace(header)
	for _, c := range workbookColumns {
		if strings.EqualFold(c, h) {
			return c
		}
	}
	return columnAliases[strings.ToLower(h)]
}

// ReadRows returns the rows of the first sheet. A missing file is an empty
// table.
func (c *WorkbookClient) ReadRows(path string) ([]dto.RawRow, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		columns[i] = canonicalColumn(h)
	}

	var out []dto.RawRow
	for _, cells := range rows[1:] {
		row := dto.RawRow{}
		empty := true
		for i, v := range cells {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				empty = false
			}
			setColumn(&row, columns[i], v)
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}

// WriteRows replaces the workbook at path with rows.
func (c *WorkbookClient) WriteRows(path string, rows []dto.RawRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), workbookSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(workbookColumns))
	for i, col := range workbookColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(workbookSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(workbookColumns))
		for j, col := range workbookColumns {
			values[j] = getColumn(row, col)
		}
		if err := f.SetSheetRow(workbookSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// AppendRows adds rows to the workbook at path, creating it if needed.
func (c *WorkbookClient) AppendRows(path string, rows []dto.RawRow) error {
	existing, err := c.ReadRows(path)
	if err != nil {
		return err
	}
	return c.WriteRows(path, append(existing, rows...))
}

// Exists reports whether the workbook file is present.
func (c *WorkbookClient) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func setColumn(row *dto.RawRow, column, v string) {
	switch column {
	case "CaseId":
		row.CaseID = v
	case "OrderId":
		row.OrderID = v
	case "LineNo":
		row.LineNo = v
	case "Price":
		row.Price = v
	case "Tax":
		row.Tax = v
	case "Description":
		row.Description = v
	case "RequiredDate":
		row.RequiredDate = v
	case "Status":
		row.Status = v
	case "InvoiceNo":
		row.InvoiceNo = v
	case "Deliveries":
		row.Deliveries = v
	case "ClientPart":
		row.ClientPart = v
	case "Type":
		row.Type = v
	case "Quantity":
		row.Quantity = v
	case "Subtotal":
		row.Subtotal = v
	}
}

func getColumn(row dto.RawRow, column string) string {
	switch column {
	case "CaseId":
		return row.CaseID
	case "OrderId":
		return row.OrderID
	case "LineNo":
		return row.LineNo
	case "Price":
		return row.Price
	case "Tax":
		return row.Tax
	case "Description":
		return row.Description
	case "RequiredDate":
		return row.RequiredDate
	case "Status":
		return row.Status
	case "InvoiceNo":
		return row.InvoiceNo
	case "Deliveries":
		return row.Deliveries
	case "ClientPart":
		return row.ClientPart
	case "Type":
		return row.Type
	case "Quantity":
		return row.Quantity
	case "Subtotal":
		return row.Subtotal
	}
	return ""
}
