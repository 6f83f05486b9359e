// Package export turns inventory snapshots into documents: an XLSX
// workbook that can be read back, a per-asset PDF sheet and a PDF report.
package export

import (
	"strconv"
	"strings"

	"github.com/servyre/inventario/internal/inventory"
)

// Column is one spreadsheet column. Key is the record's JSON field name.
type Column struct {
	Key     string
	Header  string
	Aliases []string
}

// Columns is the stable export order. Every AssetRecord field appears
// exactly once.
var Columns = []Column{
	{Key: "id", Header: "id", Aliases: []string{"ID"}},
	{Key: "location", Header: "location", Aliases: []string{"Ubicación", "Ubicacion"}},
	{Key: "department", Header: "department", Aliases: []string{"Departamento"}},
	{Key: "resguardo", Header: "resguardo", Aliases: []string{"Resguardo"}},
	{Key: "fullName", Header: "fullName", Aliases: []string{"Asignado a", "Nombre"}},
	{Key: "position", Header: "position", Aliases: []string{"Puesto"}},
	{Key: "email", Header: "email", Aliases: []string{"Correo"}},
	{Key: "address", Header: "address", Aliases: []string{"Dirección", "Direccion"}},
	{Key: "extension", Header: "extension", Aliases: []string{"Extensión", "Extension"}},
	{Key: "deviceType", Header: "deviceType", Aliases: []string{"Equipo"}},
	{Key: "brand", Header: "brand", Aliases: []string{"Marca"}},
	{Key: "model", Header: "model", Aliases: []string{"Modelo"}},
	{Key: "serialNumber", Header: "serialNumber", Aliases: []string{"N° Serie", "Serie"}},
	{Key: "os", Header: "os", Aliases: []string{"Sistema Operativo"}},
	{Key: "pcName", Header: "pcName", Aliases: []string{"Nombre PC"}},
	{Key: "processor", Header: "processor", Aliases: []string{"Procesador"}},
	{Key: "ram", Header: "ram", Aliases: []string{"RAM"}},
	{Key: "storageCapacity", Header: "storageCapacity", Aliases: []string{"Disco"}},
	{Key: "storageType", Header: "storageType", Aliases: []string{"Tipo de Disco"}},
	{Key: "status", Header: "status", Aliases: []string{"Estado", "Estatus"}},
	{Key: "mouseExternal", Header: "mouseExternal", Aliases: []string{"Mouse Externo"}},
	{Key: "notes", Header: "notes", Aliases: []string{"Notas"}},
}

// Values renders record in Columns order.
func Values(record inventory.AssetRecord) []string {
	out := make([]string, 0, len(Columns))
	for _, col := range Columns {
		out = append(out, valueOf(record, col.Key))
	}
	return out
}

func valueOf(r inventory.AssetRecord, key string) string {
	switch key {
	case "id":
		return r.ID
	case "location":
		return r.Location
	case "department":
		return r.Department
	case "resguardo":
		return r.Resguardo
	case "fullName":
		return r.FullName
	case "position":
		return r.Position
	case "email":
		return r.Email
	case "address":
		return r.Address
	case "extension":
		return r.Extension
	case "deviceType":
		return r.DeviceType
	case "brand":
		return r.Brand
	case "model":
		return r.Model
	case "serialNumber":
		return r.SerialNumber
	case "os":
		return r.OS
	case "pcName":
		return r.PCName
	case "processor":
		return r.Processor
	case "ram":
		return strconv.Itoa(r.RAM)
	case "storageCapacity":
		return strconv.Itoa(r.StorageCapacity)
	case "storageType":
		return string(r.StorageType)
	case "status":
		return string(r.Status)
	case "mouseExternal":
		return strconv.FormatBool(r.MouseExternal)
	case "notes":
		return r.Notes
	}
	return ""
}

// columnForHeader matches a header cell against keys and aliases,
// ignoring case and surrounding space.
func columnForHeader(header string) (Column, bool) {
	header = strings.TrimSpace(header)
	for _, col := range Columns {
		if strings.EqualFold(header, col.Key) {
			return col, true
		}
		for _, alias := range col.Aliases {
			if strings.EqualFold(header, alias) {
				return col, true
			}
		}
	}
	return Column{}, false
}

func yesNo(v bool) string {
	if v {
		return "Sí"
	}
	return "No"
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y", "si", "sí", "x":
		return true, true
	case "", "false", "0", "no", "n":
		return false, true
	}
	return false, false
}

// parseGB accepts "16" and "16 GB".
func parseGB(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, true
	}
	raw = strings.TrimSpace(strings.TrimSuffix(strings.ToUpper(raw), "GB"))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
