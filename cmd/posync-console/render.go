package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"posync/internal/conn"
	"posync/internal/domain"
	"posync/internal/format"
	"posync/internal/state"
)

// Styles.
var (
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	changedStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	moneyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	countStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	goodStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	badStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	connectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	offlineStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("3")) // black on yellow
	closedStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
)

// headerStyle picks the header bar colour for the daemon's connection state.
func headerStyle(st domain.ConnectionState) lipgloss.Style {
	switch st {
	case domain.StateConnected:
		return connectedStyle
	case domain.StateClosed:
		return closedStyle
	default:
		return offlineStyle
	}
}

func headerText(s conn.Status, addr string, streaming bool) string {
	stream := "stream: live"
	if !streaming {
		stream = "stream: down"
	}
	text := fmt.Sprintf(" posync  %s    sync: %s", addr, s.State)
	if s.ReconnectAttempts > 0 {
		text += fmt.Sprintf(" (attempt %d)", s.ReconnectAttempts)
	}
	return text + "    " + stream + " "
}

// marginStyle colours a profit margin or utilization percentage.
func marginStyle(p float64) lipgloss.Style {
	switch {
	case p >= 30:
		return goodStyle
	case p >= 10:
		return warnStyle
	default:
		return badStyle
	}
}

func row(label, value string) string {
	return "  " + labelStyle.Render(fmt.Sprintf("%-22s", label)) + value + "\n"
}

func section(b *strings.Builder, title string, changed bool) {
	if changed {
		b.WriteString(changedStyle.Render(" "+title+" ") + "\n")
		return
	}
	b.WriteString(sectionStyle.Render(title) + "\n")
}

// renderSnapshot renders every aggregate, highlighting the one named by
// changed.
func renderSnapshot(snap state.Snapshot, changed string) string {
	var b strings.Builder

	d := snap.Dashboard
	section(&b, "Dashboard", changed == state.AggDashboard)
	b.WriteString(row("Total sales", moneyStyle.Render(format.Money(d.TotalSales))))
	b.WriteString(row("Orders", countStyle.Render(format.Int(d.OrderCount))))
	b.WriteString(row("Average order", moneyStyle.Render(format.Money(d.AverageOrderValue))))
	b.WriteString(row("Profit margin", marginStyle(d.ProfitMargin).Render(format.Percent(d.ProfitMargin))))
	b.WriteString(row("Tables",
		fmt.Sprintf("%d/%d  %s", d.TablesOccupied, d.TablesTotal, format.Percent(d.TableUtilization))))
	b.WriteString("\n")

	s := snap.Sales
	section(&b, "Sales", changed == state.AggSales)
	b.WriteString(row("Revenue", moneyStyle.Render(format.Compact(s.Revenue))))
	b.WriteString(row("Orders", countStyle.Render(format.Count(s.Orders))))
	b.WriteString(row("Items sold", countStyle.Render(format.Count(s.ItemsSold))))
	b.WriteString(row("Average order", moneyStyle.Render(format.Money(s.AverageOrderValue))))
	b.WriteString(row("Items per order", fmt.Sprintf("%.2f", s.AverageItemsPerOrder)))
	b.WriteString(row("Discounts", format.Money(s.Discounts)))
	b.WriteString(row("Tax", format.Money(s.Tax)))
	b.WriteString("\n")

	st := snap.Stock
	section(&b, "Stock", changed == state.AggStock)
	b.WriteString(row("Products", countStyle.Render(format.Int(st.TotalProducts))))
	b.WriteString(row("Units", countStyle.Render(format.Int(st.TotalUnits))))
	b.WriteString(row("Value", moneyStyle.Render(format.Compact(st.TotalValue))))
	b.WriteString(row("Average unit value", format.Money(st.AverageUnitValue)))
	b.WriteString(row("In stock", goodStyle.Render(fmt.Sprintf("%s  %s", format.Int(st.InStock), format.Percent(st.InStockPct)))))
	b.WriteString(row("Low stock", warnStyle.Render(fmt.Sprintf("%s  %s", format.Int(st.LowStock), format.Percent(st.LowStockPct)))))
	b.WriteString(row("Reorder needed", warnStyle.Render(fmt.Sprintf("%s  %s", format.Int(st.ReorderNeeded), format.Percent(st.ReorderNeededPct)))))
	b.WriteString(row("Out of stock", badStyle.Render(fmt.Sprintf("%s  %s", format.Int(st.OutOfStock), format.Percent(st.OutOfStockPct)))))
	b.WriteString("\n")

	e := snap.Expense
	section(&b, "Expenses", changed == state.AggExpense)
	b.WriteString(row("Total", moneyStyle.Render(format.Money(e.Total))))
	b.WriteString(row("Count", countStyle.Render(format.Int(e.Count))))
	b.WriteString(row("Per day", format.Money(e.AveragePerDay)))
	b.WriteString(row("Per expense", format.Money(e.AveragePerExpense)))
	cats := make([]string, 0, len(e.ByCategory))
	for c := range e.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		b.WriteString(row("  "+c, fmt.Sprintf("%s  %s", format.Money(e.ByCategory[c]), format.Percent(e.CategoryPct[c]))))
	}

	if !snap.UpdatedAt.IsZero() {
		b.WriteString("\n" + labelStyle.Render("updated "+snap.UpdatedAt.Local().Format("15:04:05")) + "\n")
	}
	return b.String()
}

// padOrTrunc pads s with spaces or truncates it to exactly width runes.
func padOrTrunc(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
