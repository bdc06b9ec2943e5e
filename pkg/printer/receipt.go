// Package printer renders receipts as ESC/POS byte streams and sends them to a
// raw network printer.
package printer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultWidth = 42

var (
	cmdInit        = []byte{0x1b, '@'}
	cmdAlignLeft   = []byte{0x1b, 'a', 0}
	cmdAlignCenter = []byte{0x1b, 'a', 1}
	cmdBoldOn      = []byte{0x1b, 'E', 1}
	cmdBoldOff     = []byte{0x1b, 'E', 0}
	cmdFeedCut     = []byte{0x1d, 'V', 66, 3}
)

// Line is one printed receipt row.
type Line struct {
	Name      string
	Qty       int
	LineTotal decimal.Decimal
}

// Receipt is the printer's view of a completed sale.
type Receipt struct {
	Title     string
	OrderID   string
	Timestamp time.Time
	Lines     []Line
	Subtotal  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
}

// Render lays the receipt out for a printer with the given column width. A
// non-positive width uses the 42 column default of 80mm paper.
func Render(r Receipt, width int) []byte {
	if width <= 0 {
		width = defaultWidth
	}
	var buf bytes.Buffer
	buf.Write(cmdInit)

	buf.Write(cmdAlignCenter)
	buf.Write(cmdBoldOn)
	title := r.Title
	if title == "" {
		title = "RECEIPT"
	}
	buf.WriteString(truncate(title, width) + "\n")
	buf.Write(cmdBoldOff)
	if !r.Timestamp.IsZero() {
		buf.WriteString(r.Timestamp.Format("2006-01-02 15:04") + "\n")
	}
	if r.OrderID != "" {
		buf.WriteString(truncate("Order "+r.OrderID, width) + "\n")
	}

	buf.Write(cmdAlignLeft)
	rule := strings.Repeat("-", width) + "\n"
	buf.WriteString(rule)
	for _, line := range r.Lines {
		label := fmt.Sprintf("%dx %s", line.Qty, line.Name)
		buf.WriteString(row(label, line.LineTotal.StringFixed(2), width))
	}
	buf.WriteString(rule)
	buf.WriteString(row("Subtotal", r.Subtotal.StringFixed(2), width))
	buf.WriteString(row("Tax", r.Tax.StringFixed(2), width))
	buf.Write(cmdBoldOn)
	buf.WriteString(row("TOTAL", r.Total.StringFixed(2), width))
	buf.Write(cmdBoldOff)

	buf.WriteString("\n\n\n")
	buf.Write(cmdFeedCut)
	return buf.Bytes()
}

// row left-aligns label and right-aligns amount on one line, truncating the label.
func row(label, amount string, width int) string {
	room := width - len(amount) - 1
	if room < 1 {
		return amount + "\n"
	}
	label = truncate(label, room)
	return label + strings.Repeat(" ", width-len(label)-len(amount)) + amount + "\n"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
