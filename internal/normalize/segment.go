package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AgeRange buckets an age into ten-year ranges "10-20" through "100-110",
// each open below and closed above. Ages outside every bucket yield "".
func AgeRange(age int) string {
	for y := 20; y <= 110; y += 10 {
		if age > y-10 && age <= y {
			return strconv.Itoa(y-10) + "-" + strconv.Itoa(y)
		}
	}
	return ""
}

// IncomeRange buckets an income into 10k ranges "20000-30000" through
// "110000-120000".
func IncomeRange(income float64) string {
	for y := 30; y <= 120; y += 10 {
		if income > float64((y-10)*1000) && income <= float64(y*1000) {
			return strconv.Itoa((y-10)*1000) + "-" + strconv.Itoa(y*1000)
		}
	}
	return ""
}

// Stringify renders a decoded JSON value as the text a human would write.
func Stringify(v any) string {
	return stringify(v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
