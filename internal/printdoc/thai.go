package printdoc

import (
	"fmt"
	"strings"
	"time"

	"sheetsync/internal/record"
)

// buddhistEraOffset converts a Gregorian year to the Thai Buddhist era.
const buddhistEraOffset = 543

var thaiMonths = [...]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

var thaiMonthsShort = [...]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// BuddhistYear returns the Thai Buddhist era year of t.
func BuddhistYear(t time.Time) int {
	return t.Year() + buddhistEraOffset
}

// ThaiLongDate formats t as "15 มกราคม 2567".
func ThaiLongDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()-1], BuddhistYear(t))
}

// ThaiShortDate formats t as "15/1/2567".
func ThaiShortDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), BuddhistYear(t))
}

// ThaiDateTime formats a stored date-time string as "14 ก.พ. 2567 09:00 น.".
// Values that do not parse are returned unchanged.
func ThaiDateTime(s string, loc *time.Location) string {
	t, ok := record.ParseDateTime(s, loc)
	if !ok {
		return s
	}
	t = t.In(loc)
	return fmt.Sprintf("%d %s %d %02d:%02d น.", t.Day(), thaiMonthsShort[t.Month()-1], BuddhistYear(t), t.Hour(), t.Minute())
}

// ReceiptNumber is the short reference printed on receipts: the last eight
// characters of the id, upper-cased.
func ReceiptNumber(id string) string {
	r := []rune(id)
	if len(r) > 8 {
		r = r[len(r)-8:]
	}
	return strings.ToUpper(string(r))
}
