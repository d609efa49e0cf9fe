package api

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/movierank/internal/model"
)

// Chart kinds: rank is drawn as bars, year as a line.
const (
	chartBar  = "bar"
	chartLine = "line"
)

const (
	chartWidth        = 800
	chartHeight       = 420
	chartMarginLeft   = 60
	chartMarginRight  = 20
	chartMarginTop    = 20
	chartMarginBottom = 160
)

type chartBarView struct {
	X, Y, Width, Height int
	Name                string
	Value               int64
}

type chartMarker struct {
	X, Y  int
	Name  string
	Value int64
}

type chartLabel struct {
	X, Y int
	Text string
}

type chartView struct {
	Kind                       string
	Title                      string
	Width, Height              int
	Left, Right, Top, Baseline int
	Min, Max                   int64
	Bars                       []chartBarView
	Markers                    []chartMarker
	Polyline                   string
	Labels                     []chartLabel
}

// buildChart lays out points left to right in report order. Bars grow from
// zero; the line is scaled to the observed range so close years stay apart.
func buildChart(sortBy model.SortColumn, points []model.ChartPoint) *chartView {
	if len(points) == 0 {
		return nil
	}
	c := &chartView{
		Kind:     chartLine,
		Title:    "Top movies by " + strings.ToLower(string(sortBy)),
		Width:    chartWidth,
		Height:   chartHeight,
		Left:     chartMarginLeft,
		Right:    chartWidth - chartMarginRight,
		Top:      chartMarginTop,
		Baseline: chartHeight - chartMarginBottom,
	}
	if sortBy == model.SortByRank {
		c.Kind = chartBar
	}

	lo, hi := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	if c.Kind == chartBar {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	c.Min, c.Max = lo, hi

	plotHeight := c.Baseline - c.Top
	slot := (c.Right - c.Left) / len(points)
	scale := func(v int64) int {
		return int(int64(plotHeight) * (v - lo) / (hi - lo))
	}

	coords := make([]string, 0, len(points))
	for i, p := range points {
		center := c.Left + i*slot + slot/2
		h := scale(p.Value)
		if c.Kind == chartBar {
			barWidth := max(slot*3/4, 1)
			c.Bars = append(c.Bars, chartBarView{
				X:      center - barWidth/2,
				Y:      c.Baseline - h,
				Width:  barWidth,
				Height: h,
				Name:   p.Name,
				Value:  p.Value,
			})
		} else {
			y := c.Baseline - h
			c.Markers = append(c.Markers, chartMarker{X: center, Y: y, Name: p.Name, Value: p.Value})
			coords = append(coords, strconv.Itoa(center)+","+strconv.Itoa(y))
		}
		c.Labels = append(c.Labels, chartLabel{X: center, Y: c.Baseline + 14, Text: p.Name})
	}
	c.Polyline = strings.Join(coords, " ")
	return c
}
