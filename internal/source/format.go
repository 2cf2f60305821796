package source

import (
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is used for time.Time cells.
const TimeLayout = "2006-01-02 15:04:05"

// DisplayFormatter renders raw driver values as display text.
type DisplayFormatter struct{}

// FormatCell implements pipeline.CellFormatter.
func (DisplayFormatter) FormatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(TimeLayout)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
