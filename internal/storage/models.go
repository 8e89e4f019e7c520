package storage

// AlertSent records one delivered opportunity alert. Only alerts are kept;
// scan results themselves are never persisted.
type AlertSent struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	AlertKey     string  `gorm:"size:600;not null;index:idx_alert_key_created,priority:1"`
	ScanID       string  `gorm:"size:36;not null;index"`
	Severity     string  `gorm:"size:16;not null"`
	Source       string  `gorm:"size:32;not null;index"`
	Title        string  `gorm:"size:512;not null"`
	Link         string  `gorm:"size:512"`
	Topic        string  `gorm:"size:32"`
	CurrentPrice float64 `gorm:"type:decimal(10,6);not null"`
	FairValue    float64 `gorm:"type:decimal(10,6);not null"`
	Edge         float64 `gorm:"type:decimal(10,6);not null"`
	Confidence   int     `gorm:"not null"`
	CreatedTS    int64   `gorm:"not null;index:idx_alert_key_created,priority:2"`
}

func (AlertSent) TableName() string {
	return "alerts_sent"
}
