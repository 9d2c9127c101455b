package reports

import (
	"errors"
	"time"

	"github.com/gasflow-erp/gasflow/internal/inventory"
)

// Movement is the per-product movement tally for one period. The counters
// mirror the columns of the daily sales register.
type Movement struct {
	ReceivedFull      int64 `json:"received_full"`
	ReceivedEmpty     int64 `json:"received_empty"`
	ReceivedDefective int64 `json:"received_defective"`
	LoadAssigned      int64 `json:"load_assigned"`
	DeliveredFull     int64 `json:"delivered_full"`
	EmptyCollected    int64 `json:"empty_collected"`
	UnsoldFull        int64 `json:"unsold_full"`
	DefectiveMoved    int64 `json:"defective_moved"`
}

// IsZero reports whether no movement was recorded.
func (m Movement) IsZero() bool {
	return m == Movement{}
}

// Add accumulates another tally.
func (m *Movement) Add(other Movement) {
	m.ReceivedFull += other.ReceivedFull
	m.ReceivedEmpty += other.ReceivedEmpty
	m.ReceivedDefective += other.ReceivedDefective
	m.LoadAssigned += other.LoadAssigned
	m.DeliveredFull += other.DeliveredFull
	m.EmptyCollected += other.EmptyCollected
	m.UnsoldFull += other.UnsoldFull
	m.DefectiveMoved += other.DefectiveMoved
}

// StockPosition is the per-product cell balance split by state across all
// buckets.
type StockPosition struct {
	Full      int64 `json:"full"`
	Empty     int64 `json:"empty"`
	Defective int64 `json:"defective"`
}

// DSRRow is one product's line in the daily sales register.
type DSRRow struct {
	ProductID   int64         `json:"product_id"`
	ProductName string        `json:"product_name"`
	Opening     StockPosition `json:"opening"`
	Movement
	Closing StockPosition `json:"closing"`
}

// DSRReport is the daily sales register for one date.
type DSRReport struct {
	Date time.Time `json:"date"`
	Rows []DSRRow  `json:"rows"`
}

// MonthlyRow is one product's line for one day of the monthly closing
// report.
type MonthlyRow struct {
	Date        time.Time     `json:"date"`
	ProductID   int64         `json:"product_id"`
	ProductName string        `json:"product_name"`
	Opening     StockPosition `json:"opening"`
	Movement
	Closing StockPosition `json:"closing"`
}

// MonthlyReport is the closing report for one calendar month.
type MonthlyReport struct {
	Year  int          `json:"year"`
	Month time.Month   `json:"month"`
	Rows  []MonthlyRow `json:"rows"`
}

// BucketMovementRow is one product's in/out totals for a single bucket over
// a period.
type BucketMovementRow struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	In          int64  `json:"in"`
	Out         int64  `json:"out"`
	Balance     int64  `json:"balance"`
}

// BucketMovementReport covers one bucket over a date range. Balance is the
// bucket's current cell total, not a point-in-time figure.
type BucketMovementReport struct {
	Bucket inventory.Bucket    `json:"bucket"`
	From   time.Time           `json:"from"`
	To     time.Time           `json:"to"`
	Rows   []BucketMovementRow `json:"rows"`
}

// ProductMovementReport is one product's full transaction trail plus its
// current position.
type ProductMovementReport struct {
	ProductID   int64                   `json:"product_id"`
	ProductName string                  `json:"product_name"`
	From        time.Time               `json:"from"`
	To          time.Time               `json:"to"`
	Position    StockPosition           `json:"position"`
	Entries     []inventory.Transaction `json:"entries"`
}

// ErrBadRange indicates from after to.
var ErrBadRange = errors.New("reports: from must not be after to")

// ErrUnknownBucket indicates a bucket code outside the known set.
var ErrUnknownBucket = errors.New("reports: unknown bucket")
