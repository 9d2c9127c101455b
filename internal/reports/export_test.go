package reports

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportDSR(t *testing.T) {
	report := DSRReport{
		Date: time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		Rows: []DSRRow{
			{
				ProductID:   1,
				ProductName: "14.2kg Domestic",
				Opening:     StockPosition{Full: 43, Empty: 6},
				Movement: Movement{
					ReceivedFull:  50,
					LoadAssigned:  10,
					DeliveredFull: 7,
				},
				Closing: StockPosition{Full: 43, Empty: 6},
			},
		},
	}

	f, err := ExportDSR(report)
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue("DSR", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Daily Sales Register 2026-08-15", title)

	name, err := f.GetCellValue("DSR", "A3")
	require.NoError(t, err)
	assert.Equal(t, "14.2kg Domestic", name)

	delivered, err := f.GetCellValue("DSR", "H3")
	require.NoError(t, err)
	assert.Equal(t, "7", delivered)
}
