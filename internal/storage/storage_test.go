package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/liamashdown/edgescan/internal/alerts"
	"github.com/sirupsen/logrus"
)

func TestAlertSentFromPayload(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	p := &alerts.AlertPayload{
		Severity:     alerts.SeverityAlert,
		Title:        "Will BTC close above 100k?",
		Source:       "kalshi",
		Link:         "https://kalshi.com/markets/BTC",
		Topic:        "crypto",
		CurrentPrice: 0.4,
		FairValue:    0.7,
		Edge:         0.3,
		Confidence:   92,
		ScanID:       "0b4b6a0e-0000-0000-0000-000000000000",
		Timestamp:    ts,
	}

	row := alertSentFromPayload(p)

	if row.AlertKey != p.Key() {
		t.Errorf("key = %q, want %q", row.AlertKey, p.Key())
	}
	if row.CreatedTS != ts.Unix() {
		t.Errorf("created = %d, want %d", row.CreatedTS, ts.Unix())
	}
	if row.Severity != "ALERT" || row.Confidence != 92 || row.Edge != 0.3 {
		t.Errorf("unexpected row %+v", row)
	}
	if row.TableName() != "alerts_sent" {
		t.Errorf("table = %q", row.TableName())
	}
}

func TestAlertSentFromPayloadDefaultsTimestamp(t *testing.T) {
	before := time.Now().Unix()
	row := alertSentFromPayload(&alerts.AlertPayload{Title: "x", Source: "polymarket"})
	if row.CreatedTS < before {
		t.Errorf("created = %d, expected >= %d", row.CreatedTS, before)
	}
}

func TestGormLogAdapterLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetLevel(logrus.DebugLevel)

	(&gormLogAdapter{log: log}).Printf("slow query %dms", 250)
	if !strings.Contains(buf.String(), "slow query 250ms") || !strings.Contains(buf.String(), "level=debug") {
		t.Errorf("unexpected log output %q", buf.String())
	}
}
