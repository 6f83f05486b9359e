package export

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/servyre/inventario/internal/catalog"
	"github.com/servyre/inventario/internal/codec"
	"github.com/servyre/inventario/internal/inventory"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestColumnsCoverEveryRecordField(t *testing.T) {
	t.Parallel()

	keys := map[string]bool{}
	for _, col := range Columns {
		require.False(t, keys[col.Key], "duplicate column %s", col.Key)
		keys[col.Key] = true
	}

	want := jsonNames(reflect.TypeOf(inventory.AssetRecord{}))
	require.Len(t, keys, len(want))
	for _, name := range want {
		require.True(t, keys[name], "missing column for %s", name)
	}
}

func TestValuesFollowColumnOrder(t *testing.T) {
	t.Parallel()

	record := sampleRecord("id-1", "Ana Ruiz", "SN123")
	values := Values(record)
	require.Len(t, values, len(Columns))
	require.Equal(t, "id-1", values[0])
	require.Equal(t, "Corporativo", values[1])
	require.Equal(t, "16", values[indexOf(t, "ram")])
	require.Equal(t, "true", values[indexOf(t, "mouseExternal")])
}

func TestXLSXRoundTrip(t *testing.T) {
	t.Parallel()

	snapshot := codec.Snapshot{
		Records: []inventory.AssetRecord{
			sampleRecord("id-2", "Luis Pérez", "SN456"),
			sampleRecord("id-1", "Ana Ruiz", "SN123"),
		},
		Catalogs: catalog.DefaultState(),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, snapshot))

	rows, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 2, rows[0].Row)
	require.Equal(t, snapshot.Records[0].Fields, rows[0].Fields)
	require.Equal(t, snapshot.Records[1].Fields, rows[1].Fields)
	require.Empty(t, rows[0].Warnings)
}

func TestWriteXLSXIncludesCatalogSheet(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, codec.Snapshot{Catalogs: catalog.DefaultState()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(CatalogSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"kind", "brand", "name"}, rows[0])
	require.Contains(t, rows, []string{"model", "Dell", "Latitude 3420"})
	require.Contains(t, rows, []string{"location", "", "Tultitlán"})
}

func TestReadXLSXAcceptsSpanishHeadersAndWarns(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"Asignado a", "N° Serie", "Ubicación", "RAM", "Disco", "Mouse Externo", "Estado", "Columna Extra"},
		{"Ana Ruiz", "SN123", "Corporativo", "16 GB", "lots", "Sí", "baja", "ignored"},
		{"", "", "", "", "", "", "", ""},
		{"Luis", "SN9", "Campo", "8", "256", "maybe", "", ""},
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &rows[i]))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	parsed, err := ReadXLSX(&buf)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	first := parsed[0]
	require.Equal(t, 2, first.Row)
	require.Equal(t, "Ana Ruiz", first.Fields.FullName)
	require.Equal(t, 16, first.Fields.RAM)
	require.True(t, first.Fields.MouseExternal)
	require.Equal(t, inventory.StatusRetired, first.Fields.Status)
	require.Len(t, first.Warnings, 1)
	require.Contains(t, first.Warnings[0], "storageCapacity")

	second := parsed[1]
	require.Equal(t, 4, second.Row)
	require.Equal(t, 256, second.Fields.StorageCapacity)
	require.Len(t, second.Warnings, 1)
	require.Contains(t, second.Warnings[0], "mouseExternal")
}

func TestReadXLSXRejectsUnknownHeaders(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow(f.GetSheetName(0), "A1", &[]any{"foo", "bar"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ReadXLSX(&buf)
	require.Error(t, err)
}

func TestReadXLSXRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := ReadXLSX(strings.NewReader("not a workbook"))
	require.Error(t, err)
}

func TestSheetRowsMatchAssetSheetLayout(t *testing.T) {
	t.Parallel()

	rows := SheetRows(sampleRecord("id-1", "Ana Ruiz", "SN123"))
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row[0])
	}
	require.Equal(t, []string{
		"Ubicación", "Dirección", "Departamento", "Puesto", "Asignado a", "Correo", "Resguardo",
		"Equipo", "Marca/Modelo", "N° Serie", "Nombre PC", "Procesador", "RAM", "Disco", "Mouse Externo",
	}, labels)
	require.Equal(t, "Dell Latitude 3420", rows[8][1])
	require.Equal(t, "16 GB", rows[12][1])
	require.Equal(t, "512 GB SSD", rows[13][1])
	require.Equal(t, "Sí", rows[14][1])
	require.Equal(t, "Servyre_SN123.pdf", SheetFileName(sampleRecord("x", "y", "SN123")))
}

func TestWriteAssetSheetPDF(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	record := sampleRecord("id-1", "Ana Ruiz", "SN123")
	record.Notes = "Equipo con cargador de repuesto."
	require.NoError(t, WriteAssetSheetPDF(&buf, record, PDFOptions{}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWriteReportPDFManyPages(t *testing.T) {
	t.Parallel()

	snapshot := codec.Snapshot{Catalogs: catalog.DefaultState()}
	for i := 0; i < 120; i++ {
		snapshot.Records = append(snapshot.Records, sampleRecord("id", "Persona con un nombre bastante largo para truncar", "SN"))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReportPDF(&buf, snapshot, PDFOptions{Title: "Reporte"}))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", truncate("short", 10))
	require.Equal(t, "abcd...", truncate("abcdefghij", 7))
	require.Equal(t, "ñññ...", truncate("ññññññññ", 6))
}

func sampleRecord(id, name, serial string) inventory.AssetRecord {
	return inventory.AssetRecord{
		ID: id,
		Fields: inventory.Fields{
			Location:        "Corporativo",
			Department:      "Sistemas",
			Resguardo:       "R-001",
			FullName:        name,
			Position:        "Analista",
			Email:           "ana@servyre.example",
			Address:         "Av. Reforma 1",
			Extension:       "123",
			DeviceType:      "Laptop",
			Brand:           "Dell",
			Model:           "Latitude 3420",
			SerialNumber:    serial,
			OS:              "Windows 11",
			PCName:          "SRV-LAP-01",
			Processor:       "i5",
			RAM:             16,
			StorageCapacity: 512,
			StorageType:     inventory.StorageSSD,
			Status:          inventory.StatusActive,
			MouseExternal:   true,
			Notes:           "",
		},
	}
}

func jsonNames(typ reflect.Type) []string {
	var out []string
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if field.Anonymous {
			out = append(out, jsonNames(field.Type)...)
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		out = append(out, name)
	}
	return out
}

func indexOf(t *testing.T, key string) int {
	t.Helper()
	for i, col := range Columns {
		if col.Key == key {
			return i
		}
	}
	t.Fatalf("no column %s", key)
	return -1
}
