package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"nextbus/internal/board"
	"nextbus/internal/model"
	"nextbus/internal/realtime"
	"nextbus/internal/storage"
)

// print writes v as indented JSON with --json, otherwise runs text.
func (e *env) print(c *cli.Context, v any, text func(p *printer)) error {
	if e.json {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	p := newPrinter(c.App.Writer)
	text(p)
	return p.flush()
}

// printer lays out aligned text columns.
type printer struct {
	tw *tabwriter.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{tw: tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)}
}

func (p *printer) flush() error {
	return p.tw.Flush()
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.tw, format+"\n", args...)
}

func (p *printer) stop(s *model.Stop) {
	p.line("%s\t%s", s.Code, s.Name)
	if s.OnStreet != "" || s.AtStreet != "" {
		p.line("\t%s", strings.Trim(s.OnStreet+" / "+s.AtStreet, " /"))
	}
	if s.City != "" {
		p.line("\t%s", s.City)
	}
	p.line("\t%s", s.Location)
	if len(s.Routes) > 0 {
		p.line("\troutes %s", strings.Join(s.Routes, ", "))
	}
}

func (p *printer) estimates(list []model.ArrivalEstimate) {
	if len(list) == 0 {
		p.line("no upcoming arrivals")
		return
	}
	for _, est := range list {
		status := est.Status.Label()
		if est.Cancelled {
			status = "Cancelled"
		}
		p.line("%s\t%s\t%s\t%s", est.Route, est.Destination, formatCountdown(est.Countdown), status)
	}
}

func (p *printer) vehicles(list []model.VehicleLocation) {
	if len(list) == 0 {
		p.line("no buses reported")
		return
	}
	for _, v := range list {
		p.line("%s\t%s\t%s\t%s\t%s", v.Vehicle, v.Route, v.Destination, board.ExpandHeading(v.Heading), v.Location)
	}
}

func (p *printer) board(b *board.Board) {
	p.stop(&b.Stop)
	p.line("")
	if msg, ok := b.Problems["estimates"]; ok {
		p.line("arrivals: %s", msg)
	} else {
		p.estimates(b.Stop.Estimates)
	}
	p.line("")
	switch msg, ok := b.Problems["buses"]; {
	case ok:
		p.line("buses: %s", msg)
	case len(b.Vehicles) == 0:
		p.line("no buses reported")
	default:
		for _, v := range b.Vehicles {
			p.line("%s\t%s\t%s\t%s\t%s away", v.Vehicle, v.Route, v.Destination, v.HeadingText, v.Distance)
		}
	}
	if len(b.Alerts) > 0 {
		p.line("")
		p.alerts(b.Alerts)
	}
}

func (p *printer) alerts(list []realtime.Alert) {
	if len(list) == 0 {
		p.line("no service alerts")
		return
	}
	for _, a := range list {
		p.line("%s\t%s", realtime.FormatAlertEffect(a.Effect), a.HeaderText)
		if len(a.RouteIDs) > 0 {
			p.line("\troutes %s", strings.Join(a.RouteIDs, ", "))
		}
	}
}

func (p *printer) saved(list []storage.SavedStop) {
	if len(list) == 0 {
		p.line("no saved stops")
		return
	}
	for _, s := range list {
		p.line("%s\t%s\t%s", s.Stop.Code, s.Label, s.Stop.Name)
	}
}

func formatCountdown(minutes int) string {
	switch {
	case minutes <= 0:
		return "now"
	case minutes == 1:
		return "1 min"
	case minutes < 60:
		return fmt.Sprintf("%d min", minutes)
	default:
		return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
	}
}
