package monitor

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"birdnest/internal/violation"
)

// DefaultEventTable is the GreptimeDB table receiving violation events.
const DefaultEventTable = "ndz_violation_events"

// greptimeClient is the subset of the ingester client used by the writer.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes violation events to GreptimeDB via the ingester client.
type GreptimeDBWriter struct {
	client  greptimeClient
	table   string
	timeout time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port). The table is
// created by GreptimeDB on first insert.
func NewGreptimeDBWriter(endpoint, database, tableName string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithDatabase(database)
	if port > 0 {
		cfg = cfg.WithPort(port)
	}
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if tableName == "" {
		tableName = DefaultEventTable
	}
	return &GreptimeDBWriter{client: client, table: tableName, timeout: 5 * time.Second}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	if endpoint == "" {
		return "", 0, fmt.Errorf("greptime endpoint is empty")
	}
	host, p, err := net.SplitHostPort(endpoint)
	if err != nil {
		// No port given.
		return endpoint, 0, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("greptime endpoint port %q: %w", p, err)
	}
	return host, port, nil
}

// Close releases the ingester client when it holds a connection.
func (w *GreptimeDBWriter) Close() error {
	if c, ok := w.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// WriteEvent inserts a single event.
func (w *GreptimeDBWriter) WriteEvent(e violation.Event) error {
	return w.WriteEvents([]violation.Event{e})
}

// WriteEvents inserts multiple events in one request.
func (w *GreptimeDBWriter) WriteEvents(events []violation.Event) error {
	if len(events) == 0 {
		return nil
	}
	tbl, err := w.buildTable(events)
	if err != nil {
		return err
	}

	timeout := w.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %s: %w", w.table, err)
	}
	return nil
}

func (w *GreptimeDBWriter) buildTable(events []violation.Event) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"serial_number", true, types.STRING},
		{"event_type", true, types.STRING},
		{"cycle_id", false, types.STRING},
		{"pilot_id", false, types.STRING},
		{"first_name", false, types.STRING},
		{"last_name", false, types.STRING},
		{"email", false, types.STRING},
		{"phone", false, types.STRING},
		{"dist", false, types.FLOAT64},
		{"position_x", false, types.FLOAT64},
		{"position_y", false, types.FLOAT64},
		{"altitude", false, types.FLOAT64},
		{"last_seen", false, types.TIMESTAMP_MILLISECOND},
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, e := range events {
		if err := tbl.AddRow(
			e.Serial, e.Type, e.CycleID,
			e.PilotID, e.FirstName, e.LastName, e.Email, e.Phone,
			e.Distance, e.PositionX, e.PositionY, e.Altitude,
			e.LastSeen, e.Timestamp,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
