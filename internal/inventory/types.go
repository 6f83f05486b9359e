// Package inventory holds asset records and the ordered repository that
// owns them.
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("inventory: not found")
	ErrValidation = errors.New("inventory: validation failed")
)

type Status string

const (
	StatusActive      Status = "Activo"
	StatusMaintenance Status = "Mantenimiento"
	StatusRetired     Status = "Baja"
)

var AllStatuses = []Status{StatusActive, StatusMaintenance, StatusRetired}

type StorageType string

const (
	StorageSSD  StorageType = "SSD"
	StorageHDD  StorageType = "HDD"
	StorageNVMe StorageType = "NVMe"
)

var AllStorageTypes = []StorageType{StorageSSD, StorageHDD, StorageNVMe}

// AssetRecord is one device assigned to one person. JSON names match the
// persisted blob format.
type AssetRecord struct {
	ID string `json:"id"`
	Fields
}

// Fields is everything in a record except its id. Updates replace all of
// it at once.
type Fields struct {
	Location        string      `json:"location"`
	Department      string      `json:"department"`
	Resguardo       string      `json:"resguardo,omitempty"`
	FullName        string      `json:"fullName"`
	Position        string      `json:"position"`
	Email           string      `json:"email"`
	Address         string      `json:"address,omitempty"`
	Extension       string      `json:"extension,omitempty"`
	DeviceType      string      `json:"deviceType"`
	Brand           string      `json:"brand"`
	Model           string      `json:"model"`
	SerialNumber    string      `json:"serialNumber"`
	OS              string      `json:"os,omitempty"`
	PCName          string      `json:"pcName,omitempty"`
	Processor       string      `json:"processor,omitempty"`
	RAM             int         `json:"ram"`
	StorageCapacity int         `json:"storageCapacity"`
	StorageType     StorageType `json:"storageType"`
	Status          Status      `json:"status"`
	MouseExternal   bool        `json:"mouseExternal"`
	Notes           string      `json:"notes,omitempty"`
}

// Normalize trims text fields and fills the defaults the entry form used:
// status Activo and storage type SSD.
func (f Fields) Normalize() Fields {
	for _, field := range []*string{
		&f.Location, &f.Department, &f.Resguardo, &f.FullName, &f.Position, &f.Email,
		&f.Address, &f.Extension, &f.DeviceType, &f.Brand, &f.Model, &f.SerialNumber,
		&f.OS, &f.PCName, &f.Processor,
	} {
		*field = strings.TrimSpace(*field)
	}
	if strings.TrimSpace(string(f.Status)) == "" {
		f.Status = StatusActive
	}
	if strings.TrimSpace(string(f.StorageType)) == "" {
		f.StorageType = StorageSSD
	}
	return f
}

func (f Fields) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"location", f.Location},
		{"department", f.Department},
		{"fullName", f.FullName},
		{"position", f.Position},
		{"email", f.Email},
		{"deviceType", f.DeviceType},
		{"brand", f.Brand},
		{"model", f.Model},
		{"serialNumber", f.SerialNumber},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%w: %s is required", ErrValidation, field.name)
		}
	}
	if f.RAM < 0 {
		return fmt.Errorf("%w: ram must be >= 0", ErrValidation)
	}
	if f.StorageCapacity < 0 {
		return fmt.Errorf("%w: storageCapacity must be >= 0", ErrValidation)
	}
	if _, err := ParseStatus(string(f.Status)); err != nil {
		return err
	}
	if _, err := ParseStorageType(string(f.StorageType)); err != nil {
		return err
	}
	return nil
}

func ParseStatus(raw string) (Status, error) {
	for _, status := range AllStatuses {
		if strings.EqualFold(raw, string(status)) {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, raw)
}

func ParseStorageType(raw string) (StorageType, error) {
	for _, st := range AllStorageTypes {
		if strings.EqualFold(raw, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown storage type %q", ErrValidation, raw)
}
