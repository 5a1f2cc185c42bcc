package identifier

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GenerateOrderID builds the human-facing order reference:
// ORD-<uppercase base36 millisecond timestamp>-<4-digit per-tenant counter>.
//
// orderCount is the tenant's existing order count; the suffix is count+1.
// The timestamp makes references roughly sortable, but the format alone does
// not guarantee uniqueness. The unique index on the order reference column
// does, and callers regenerate on a duplicate-key insert failure.
func GenerateOrderID(at time.Time, orderCount int) string {
	ts := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	return fmt.Sprintf("ORD-%s-%04d", ts, orderCount+1)
}
