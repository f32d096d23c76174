package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyTotal entradas y salidas acumuladas de un día calendario (UTC).
type DailyTotal struct {
	Day      time.Time
	Inbound  decimal.Decimal
	Outbound decimal.Decimal
}

// HistoryPoint una fila de la serie diaria reconstruida.
type HistoryPoint struct {
	Date         time.Time
	Inbound      decimal.Decimal
	Outbound     decimal.Decimal
	NetChange    decimal.Decimal
	RunningStock decimal.Decimal
}

// TruncateDay lleva t al inicio de su día calendario en UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// HistoryRange devuelve [hoy - days, hoy] como inicios de día UTC.
func HistoryRange(now time.Time, days int) (start, end time.Time) {
	end = TruncateDay(now)
	start = end.AddDate(0, 0, -days)
	return start, end
}

// BuildDailySeries genera una fila por día calendario entre start y end (inclusive), incluyendo días sin actividad.
// RunningStock = initial + Σ NetChange hasta ese día inclusive.
func BuildDailySeries(initial decimal.Decimal, totals []DailyTotal, start, end time.Time) []HistoryPoint {
	byDay := make(map[time.Time]DailyTotal, len(totals))
	for _, t := range totals {
		day := TruncateDay(t.Day)
		agg := byDay[day]
		agg.Day = day
		agg.Inbound = agg.Inbound.Add(t.Inbound)
		agg.Outbound = agg.Outbound.Add(t.Outbound)
		byDay[day] = agg
	}

	start, end = TruncateDay(start), TruncateDay(end)
	var series []HistoryPoint
	running := initial
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		t := byDay[day]
		net := t.Inbound.Sub(t.Outbound)
		running = running.Add(net)
		series = append(series, HistoryPoint{
			Date:         day,
			Inbound:      t.Inbound,
			Outbound:     t.Outbound,
			NetChange:    net,
			RunningStock: running,
		})
	}
	return series
}
