package cli

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/servyre/inventario/internal/inventory"
)

func BenchmarkCLIRoundTrip(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		var out bytes.Buffer
		cmd := NewRootCommand(&out, BuildInfo{Version: "bench", Commit: "bench", BuildTime: "bench"})
		cmd.SetArgs([]string{"version"})
		if err := cmd.Execute(); err != nil {
			b.Fatalf("execute version command: %v", err)
		}
	}
}

func BenchmarkFilterAssets(b *testing.B) {
	locations := []string{"Corporativo", "Naucalpan", "Campo", "Tultitlán"}
	statuses := []inventory.Status{inventory.StatusActive, inventory.StatusMaintenance, inventory.StatusRetired}
	records := make([]inventory.AssetRecord, 5000)
	for i := range records {
		records[i] = inventory.AssetRecord{
			ID: fmt.Sprintf("asset-%d", i),
			Fields: inventory.Fields{
				Location:     locations[i%len(locations)],
				SerialNumber: fmt.Sprintf("SN-%05d", i),
				Status:       statuses[i%len(statuses)],
			},
		}
	}

	b.ReportAllocs()
	for b.Loop() {
		if got := filterAssets(records, inventory.StatusRetired, "campo"); len(got) == 0 {
			b.Fatal("expected matches")
		}
	}
}
