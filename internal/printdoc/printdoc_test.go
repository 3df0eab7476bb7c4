package printdoc

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"sheetsync/internal/record"
	"sheetsync/internal/testutil"
)

const (
	sectionMarker = `<section class="sheet">`
	breakMarker   = `<div class="page-break"></div>`
)

func newTestRenderer(t *testing.T, layout string, kind record.Kind) *Renderer {
	t.Helper()
	r, err := NewRenderer(layout, kind, testutil.FixedClock(), Options{
		Organization: "โรงเรียนตัวอย่าง",
		Location:     time.UTC,
	})
	if err != nil {
		t.Fatalf("NewRenderer(%q) error = %v", layout, err)
	}
	return r
}

func sampleOrders(n int) record.Collection {
	c := make(record.Collection, n)
	for i := range c {
		c[i] = record.Record{ID: fmt.Sprintf("order-%08d", i+1), Fields: record.Fields{
			"recipientName": fmt.Sprintf("Recipient %d", i+1),
			"phone":         "0812345678",
			"details":       "Red roses",
			"address":       "Bangkok",
			"deliveryTime":  "2024-02-14T09:00",
			"photoUrl":      "https://drive.google.com/file/d/abc123/view",
		}}
	}
	return c
}

func TestRenderBulk_SectionsAndBreaks(t *testing.T) {
	r := newTestRenderer(t, "order-receipt", record.Orders)
	for _, n := range []int{0, 1, 2, 5} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			var buf bytes.Buffer
			if err := r.RenderBulk(&buf, sampleOrders(n)); err != nil {
				t.Fatalf("RenderBulk() error = %v", err)
			}
			if n == 0 {
				if buf.Len() != 0 {
					t.Fatalf("RenderBulk(nil) wrote %d bytes, want none", buf.Len())
				}
				return
			}
			out := buf.String()
			if got := strings.Count(out, sectionMarker); got != n {
				t.Errorf("sections = %d, want %d", got, n)
			}
			if got := strings.Count(out, breakMarker); got != n-1 {
				t.Errorf("page breaks = %d, want %d", got, n-1)
			}
		})
	}
}

func TestRenderBulk_OrderReceipt(t *testing.T) {
	r := newTestRenderer(t, "order-receipt", record.Orders)
	var buf bytes.Buffer
	if err := r.RenderBulk(&buf, sampleOrders(2)); err != nil {
		t.Fatalf("RenderBulk() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"(Bulk Print)",
		"#00000001",
		"วันที่พิมพ์: 15/1/2567",
		"14 ก.พ. 2567 09:00 น.",
		"https://lh3.googleusercontent.com/d/abc123",
		"ผู้จัดทำช่อดอกไม้ / Prepared by",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderOne_OrderReceipt(t *testing.T) {
	r := newTestRenderer(t, "order-receipt", record.Orders)
	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	rec := sampleOrders(1)[0]
	rec.CreatedAt = &created
	rec.Fields["cardMessage"] = "<b>Happy</b> Valentine"

	var buf bytes.Buffer
	if err := r.RenderOne(&buf, rec); err != nil {
		t.Fatalf("RenderOne() error = %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "(Bulk Print)") || strings.Contains(out, breakMarker) {
		t.Error("single receipt rendered as bulk")
	}
	for _, want := range []string{"วันที่สั่งซื้อ: 1 กุมภาพันธ์ 2567", "ผู้รับสินค้า / Received by", "&lt;b&gt;Happy&lt;/b&gt;"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderBulk_AthleteRoster(t *testing.T) {
	r := newTestRenderer(t, "athlete-roster", record.Athletes)
	recs := record.Collection{
		{ID: "A1", Fields: record.Fields{"firstName": "Alice", "lastName": "Smith", "level": "M.3", "number": "7"}},
		{ID: "A2", Fields: record.Fields{"firstName": "Bob", "lastName": "Jones", "level": "M.2", "number": "9"}},
	}
	var buf bytes.Buffer
	if err := r.RenderBulk(&buf, recs); err != nil {
		t.Fatalf("RenderBulk() error = %v", err)
	}
	out := buf.String()
	if got := strings.Count(out, sectionMarker); got != 1 {
		t.Errorf("roster sections = %d, want 1", got)
	}
	for _, want := range []string{"ประจำปีการศึกษา 2567", "15 มกราคม 2567", "2 รายชื่อ", "Alice Smith", "Bob Jones", "อาจารย์ผู้ควบคุมทีม", "โรงเรียนตัวอย่าง"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestRenderOne_AthleteCard(t *testing.T) {
	r := newTestRenderer(t, "athlete-card", record.Athletes)
	rec := record.Record{ID: "a1b2", Fields: record.Fields{
		"firstName": "Alice",
		"lastName":  "Smith",
		"photoUrl":  "data:image/png;base64,iVBORw0KGgo=",
	}}
	var buf bytes.Buffer
	if err := r.RenderOne(&buf, rec); err != nil {
		t.Fatalf("RenderOne() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"#A1B2", `src="data:image/png;base64,iVBORw0KGgo="`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestImageURL_RejectsScripts(t *testing.T) {
	if got := imageURL("javascript:alert(1)"); got != "" {
		t.Errorf("imageURL() = %q, want empty", got)
	}
}

func TestNewRenderer_Errors(t *testing.T) {
	clock := testutil.FixedClock()
	if _, err := NewRenderer("poster", record.Orders, clock, Options{}); err == nil {
		t.Error("NewRenderer(unknown) error = nil")
	}
	if _, err := NewRenderer("athlete-card", record.Orders, clock, Options{}); err == nil {
		t.Error("NewRenderer(wrong kind) error = nil")
	}
}

func TestLayouts(t *testing.T) {
	got := strings.Join(Layouts("athletes"), ",")
	if got != "athlete-card,athlete-roster" {
		t.Errorf("Layouts(athletes) = %s", got)
	}
}
