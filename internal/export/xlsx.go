package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/xuri/excelize/v2"
)

const (
	InventorySheet = "Inventario"
	CatalogSheet    = "Catalogo"
)

// WriteXLSX writes the records on one sheet, in Columns order, and the
// catalogs on a second sheet as brand/model and location rows.
func WriteXLSX(w io.Writer, snapshot codec.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), InventorySheet); err != nil {
		return fmt.Errorf("write xlsx: rename sheet: %w", err)
	}

	header := make([]any, 0, len(Columns))
	for _, col := range Columns {
		header = append(header, col.Header)
	}
	if err := f.SetSheetRow(InventorySheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx: header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("write xlsx: header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(Columns))
	if err := f.SetCellStyle(InventorySheet, "A1", lastCol+"1", bold); err != nil {
		return fmt.Errorf("write xlsx: header style: %w", err)
	}

	for i, record := range snapshot.Records {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := make([]any, 0, len(Columns))
		for _, col := range Columns {
			switch col.Key {
			case "ram":
				row = append(row, record.RAM)
			case "storageCapacity":
				row = append(row, record.StorageCapacity)
			case "mouseExternal":
				row = append(row, record.MouseExternal)
			default:
				row = append(row, valueOf(record, col.Key))
			}
		}
		if err := f.SetSheetRow(InventorySheet, cell, &row); err != nil {
			return fmt.Errorf("write xlsx: row %d: %w", i+2, err)
		}
	}
	if err := f.SetColWidth(InventorySheet, "A", lastCol, 18); err != nil {
		return fmt.Errorf("write xlsx: column width: %w", err)
	}

	if _, err := f.NewSheet(CatalogSheet); err != nil {
		return fmt.Errorf("write xlsx: catalog sheet: %w", err)
	}
	if err := writeCatalogSheet(f, snapshot); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeCatalogSheet(f *excelize.File, snapshot codec.Snapshot) error {
	rows := [][]any{{"kind", "brand", "name"}}
	for _, brand := range snapshot.Catalogs.Brands {
		rows = append(rows, []any{"brand", brand, brand})
		for _, model := range snapshot.Catalogs.ModelsByBrand[brand] {
			rows = append(rows, []any{"model", brand, model})
		}
	}
	for _, location := range snapshot.Catalogs.Locations {
		rows = append(rows, []any{"location", "", location})
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(CatalogSheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("write xlsx: catalog row %d: %w", i+1, err)
		}
	}
	return nil
}

// ImportRow is one parsed data row. Row is the 1-based sheet row.
// Warnings are problems that did not stop the row from being parsed.
type ImportRow struct {
	Row      int
	Fields   inventory.Fields
	Warnings []string
}

// ReadXLSX parses the first sheet (or the Inventario sheet when present).
// The first row must be a header; unknown headers are ignored and blank
// rows are skipped.
func ReadXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if idx, err := f.GetSheetIndex(InventorySheet); err == nil && idx >= 0 {
		sheet = InventorySheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read xlsx: sheet %q is empty", sheet)
	}

	keys := make([]string, len(rows[0]))
	matched := 0
	for i, header := range rows[0] {
		if col, ok := columnForHeader(header); ok {
			keys[i] = col.Key
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("read xlsx: no recognised header in row 1")
	}

	out := make([]ImportRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if blankRow(cells) {
			continue
		}
		row := ImportRow{Row: i + 2}
		for j, cell := range cells {
			if j >= len(keys) || keys[j] == "" {
				continue
			}
			if warning := assign(&row.Fields, keys[j], cell); warning != "" {
				row.Warnings = append(row.Warnings, warning)
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func assign(f *inventory.Fields, key, raw string) string {
	value := strings.TrimSpace(raw)
	switch key {
	case "location":
		f.Location = value
	case "department":
		f.Department = value
	case "resguardo":
		f.Resguardo = value
	case "fullName":
		f.FullName = value
	case "position":
		f.Position = value
	case "email":
		f.Email = value
	case "address":
		f.Address = value
	case "extension":
		f.Extension = value
	case "deviceType":
		f.DeviceType = value
	case "brand":
		f.Brand = value
	case "model":
		f.Model = value
	case "serialNumber":
		f.SerialNumber = value
	case "os":
		f.OS = value
	case "pcName":
		f.PCName = value
	case "processor":
		f.Processor = value
	case "notes":
		f.Notes = value
	case "ram":
		n, ok := parseGB(value)
		if !ok {
			return fmt.Sprintf("ram %q is not a number, using 0", value)
		}
		f.RAM = n
	case "storageCapacity":
		n, ok := parseGB(value)
		if !ok {
			return fmt.Sprintf("storageCapacity %q is not a number, using 0", value)
		}
		f.StorageCapacity = n
	case "storageType":
		if value == "" {
			return ""
		}
		st, err := inventory.ParseStorageType(value)
		if err != nil {
			f.StorageType = inventory.StorageType(value)
			return ""
		}
		f.StorageType = st
	case "status":
		if value == "" {
			return ""
		}
		status, err := inventory.ParseStatus(value)
		if err != nil {
			f.Status = inventory.Status(value)
			return ""
		}
		f.Status = status
	case "mouseExternal":
		v, ok := parseBool(value)
		if !ok {
			return fmt.Sprintf("mouseExternal %q is not a yes/no value, using false", value)
		}
		f.MouseExternal = v
	}
	return ""
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
