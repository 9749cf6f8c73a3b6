package influxdb

import (
	"strings"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func TestPointBuilders(t *testing.T) {
	ts := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		point    *write.Point
		wantName string
		contains []string
	}{
		{
			name:     "relay open",
			point:    relayStatePoint("chapa_principal", true, "abierta", ts),
			wantName: measurementRelay,
			contains: []string{"device_id=chapa_principal", "open=true", "level=1i", `status="abierta"`},
		},
		{
			name:     "relay closed",
			point:    relayStatePoint("chapa_principal", false, "cerrada", ts),
			wantName: measurementRelay,
			contains: []string{"open=false", "level=0i"},
		},
		{
			name:     "command",
			point:    commandPoint("luz_sala", "encender", ts),
			wantName: measurementCommand,
			contains: []string{"command=encender", "device_id=luz_sala", "count=1i"},
		},
		{
			name:     "connection",
			point:    connectionPoint("chapa_principal", true, ts),
			wantName: measurementConnection,
			contains: []string{"connected=true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.point.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", tt.point.Name(), tt.wantName)
			}
			line := write.PointToLineProtocol(tt.point, time.Second)
			for _, want := range tt.contains {
				if !strings.Contains(line, want) {
					t.Errorf("line %q missing %q", line, want)
				}
			}
		})
	}
}
