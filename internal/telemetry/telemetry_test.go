package telemetry

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleReport = `<?xml version="1.0" encoding="UTF-8"?>
<report>
  <deviceInformation deviceId="GUARDB1">
    <listenRange>500000</listenRange>
  </deviceInformation>
  <capture snapshotTimestamp="2022-12-08T10:39:02.201Z">
    <drone>
      <serialNumber>SN-1</serialNumber>
      <model>HRP-DX</model>
      <manufacturer>ProDröne Ltd</manufacturer>
      <mac>2e:79:a2:fa:be:ef</mac>
      <ipv4>71.239.184.238</ipv4>
      <ipv6>c7d8:7b9e:de71:82e0:4e0b:6e0d:3f16:9cb3</ipv6>
      <firmware>5.7.7</firmware>
      <positionY>300000.5</positionY>
      <positionX>250000</positionX>
      <altitude>4512.3</altitude>
    </drone>
    <drone>
      <serialNumber>SN-2</serialNumber>
      <model>Falcon</model>
      <manufacturer>MegaBuzzer Corp</manufacturer>
      <mac>aa:bb:cc:dd:ee:ff</mac>
      <ipv4>10.0.0.1</ipv4>
      <ipv6>::1</ipv6>
      <firmware>1.0.0</firmware>
      <positionY>10000</positionY>
      <positionX>20000</positionX>
      <altitude>100</altitude>
    </drone>
  </capture>
</report>`

func TestZoneDistance(t *testing.T) {
	z := DefaultZone()
	d := DroneSnapshot{PositionX: 250000 + 30000, PositionY: 250000 + 40000}
	if got := z.Distance(d); math.Abs(got-50000) > 1e-9 {
		t.Fatalf("distance = %f, want 50000", got)
	}
	if !z.Violates(d) {
		t.Fatalf("expected drone at 50000 to violate")
	}
}

func TestZoneBoundaryIsNotViolation(t *testing.T) {
	z := DefaultZone()
	d := DroneSnapshot{PositionX: 250000, PositionY: 350000}
	if z.Violates(d) {
		t.Fatalf("drone exactly on the radius must not violate")
	}
}

func TestParseReport(t *testing.T) {
	res := ParseReport(strings.NewReader(sampleReport))
	if res.Err != nil {
		t.Fatalf("parse: %v", res.Err)
	}
	if len(res.Drones) != 2 {
		t.Fatalf("expected 2 drones, got %d", len(res.Drones))
	}
	d := res.Drones[0]
	if d.SerialNumber != "SN-1" || d.PositionX != 250000 || d.PositionY != 300000.5 || d.Altitude != 4512.3 {
		t.Fatalf("unexpected drone: %+v", d)
	}
	if d.Manufacturer != "ProDröne Ltd" {
		t.Fatalf("manufacturer = %q", d.Manufacturer)
	}
	want := time.Date(2022, 12, 8, 10, 39, 2, 201000000, time.UTC)
	if !res.SnapshotTime.Equal(want) {
		t.Fatalf("snapshot time = %v, want %v", res.SnapshotTime, want)
	}
}

func TestParseReportMalformed(t *testing.T) {
	bad := strings.Replace(sampleReport, "<positionX>250000</positionX>", "<positionX>far</positionX>", 1)
	res := ParseReport(strings.NewReader(bad))
	if res.Err == nil {
		t.Fatalf("expected parse error")
	}
	if res.Drones != nil {
		t.Fatalf("expected no drones on failure, got %d", len(res.Drones))
	}
}

func TestParseReportEmptyCapture(t *testing.T) {
	res := ParseReport(strings.NewReader(`<report><capture snapshotTimestamp=""></capture></report>`))
	if res.Err != nil {
		t.Fatalf("parse: %v", res.Err)
	}
	if res.Drones == nil || len(res.Drones) != 0 {
		t.Fatalf("expected empty non-nil batch, got %#v", res.Drones)
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, sampleReport)
	}))
	defer srv.Close()

	res := NewHTTPFetcher(srv.URL, srv.Client()).Fetch(context.Background())
	if res.Err != nil {
		t.Fatalf("fetch: %v", res.Err)
	}
	if len(res.Drones) != 2 {
		t.Fatalf("expected 2 drones, got %d", len(res.Drones))
	}
}

func TestHTTPFetcherStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	res := NewHTTPFetcher(srv.URL, srv.Client()).Fetch(context.Background())
	if res.Err == nil || res.Drones != nil {
		t.Fatalf("expected failure result, got %+v", res)
	}
}

func TestHTTPFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	res := NewHTTPFetcher(url, nil).Fetch(context.Background())
	if res.Err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pilots/SN-1" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"pilotId":"P-1","firstName":"Ada","lastName":"Lovelace","phoneNumber":"+358 1","createdDt":"2022-01-01T00:00:00Z","email":"ada@example.com"}`)
	}))
	defer srv.Close()

	drone := DroneSnapshot{SerialNumber: "SN-1"}
	res := NewHTTPResolver(srv.URL+"/pilots/", srv.Client()).Resolve(context.Background(), drone)
	if res.Err != nil {
		t.Fatalf("resolve: %v", res.Err)
	}
	want := PilotIdentity{PilotID: "P-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+358 1"}
	if res.Identity != want {
		t.Fatalf("identity = %+v, want %+v", res.Identity, want)
	}
	if res.Drone.SerialNumber != "SN-1" || res.ResolvedAt.IsZero() {
		t.Fatalf("resolution missing drone or timestamp: %+v", res)
	}
}

func TestHTTPResolverFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"not found", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"malformed", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"pilotId":`) }},
		{"missing fields", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, `{"pilotId":"P-1","firstName":"Ada"}`) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			drone := DroneSnapshot{SerialNumber: "SN-9"}
			res := NewHTTPResolver(srv.URL, srv.Client()).Resolve(context.Background(), drone)
			if res.Err == nil {
				t.Fatalf("expected error")
			}
			if !res.Identity.IsUnknown() {
				t.Fatalf("expected Unknown identity, got %+v", res.Identity)
			}
			if res.Drone != drone || res.ResolvedAt.IsZero() {
				t.Fatalf("resolution should carry drone and time: %+v", res)
			}
		})
	}
}

func TestUnknownPilot(t *testing.T) {
	if !UnknownPilot.IsUnknown() {
		t.Fatalf("sentinel must report unknown")
	}
	p := UnknownPilot
	p.FirstName = "Ada"
	if p.IsUnknown() {
		t.Fatalf("partially filled identity is not the sentinel")
	}
}
