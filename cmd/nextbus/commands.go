package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"nextbus/internal/board"
	"nextbus/internal/handler"
	"nextbus/internal/metrics"
	"nextbus/internal/model"
	"nextbus/internal/realtime"
	"nextbus/internal/server"
	"nextbus/internal/storage"
)

func stopArg(c *cli.Context) (string, error) {
	id := strings.TrimSpace(c.Args().First())
	if id == "" {
		return "", errors.New("a stop number is required, e.g. 61935")
	}
	return id, nil
}

func stopCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "show a stop's name and location",
		ArgsUsage: "STOP",
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			client, err := e.client(nil)
			if err != nil {
				return err
			}
			stop, err := client.FetchStop(c.Context, id)
			if err != nil {
				return err
			}
			return e.print(c, stop, func(p *printer) { p.stop(stop) })
		},
	}
}

func estimatesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "estimates",
		Usage:     "show the next arrivals at a stop",
		ArgsUsage: "STOP",
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			client, err := e.client(nil)
			if err != nil {
				return err
			}
			stop := model.NewStop(id)
			if err := client.FetchArrivalEstimates(c.Context, stop); err != nil {
				return err
			}
			return e.print(c, stop.Estimates, func(p *printer) { p.estimates(stop.Estimates) })
		},
	}
}

func busesCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "buses",
		Usage:     "show the buses serving a stop",
		ArgsUsage: "STOP",
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			client, err := e.client(nil)
			if err != nil {
				return err
			}
			stop := model.NewStop(id)
			if err := client.FetchVehicleLocations(c.Context, stop); err != nil {
				return err
			}
			return e.print(c, stop.Vehicles, func(p *printer) { p.vehicles(stop.Vehicles) })
		},
	}
}

func boardCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "board",
		Usage:     "show a stop with its arrivals, nearby buses and alerts",
		ArgsUsage: "STOP",
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			client, err := e.client(nil)
			if err != nil {
				return err
			}
			// Alerts are a bonus here; the board is still useful without them.
			alerts := e.fetchAlerts(c)
			b, err := board.NewBuilder(client, alerts).Build(c.Context, id)
			if err != nil {
				return err
			}
			return e.print(c, b, func(p *printer) { p.board(b) })
		},
	}
}

func alertsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "alerts",
		Usage:     "show service alerts, optionally only those affecting a stop",
		ArgsUsage: "[STOP]",
		Action: func(c *cli.Context) error {
			if e.cfg.AlertsURL == "" {
				return errors.New("no alerts url configured")
			}
			store := realtime.NewStore()
			f := realtime.NewFetcher(e.cfg.AlertsURL, e.cfg.APIKey, e.cfg.AlertsInterval, store, nil, e.logger)
			if err := f.Fetch(c.Context); err != nil {
				return err
			}

			list := store.AllAlerts()
			if id := strings.TrimSpace(c.Args().First()); id != "" {
				client, err := e.client(nil)
				if err != nil {
					return err
				}
				stop, err := client.FetchStop(c.Context, id)
				if err != nil {
					return err
				}
				list = store.AlertsForStop(stop.Code, stop.Routes, time.Now())
			}
			return e.print(c, list, func(p *printer) { p.alerts(list) })
		},
	}
}

func saveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "remember a stop",
		ArgsUsage: "STOP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "label", Usage: `a name for the stop, e.g. "Home"`},
		},
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			client, err := e.client(nil)
			if err != nil {
				return err
			}
			stop, err := client.FetchStop(c.Context, id)
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.SaveStop(c.Context, stop, strings.TrimSpace(c.String("label"))); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "saved %s %s\n", stop.Code, stop.Name)
			return nil
		},
	}
}

func unsaveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "unsave",
		Usage:     "forget a saved stop",
		ArgsUsage: "STOP",
		Action: func(c *cli.Context) error {
			id, err := stopArg(c)
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.RemoveStop(c.Context, id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("stop %s: %w", id, err)
				}
				return err
			}
			fmt.Fprintf(c.App.Writer, "removed %s\n", id)
			return nil
		},
	}
}

func savedCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "list saved stops",
		Action: func(c *cli.Context) error {
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			stops, err := db.SavedStops(c.Context)
			if err != nil {
				return err
			}
			return e.print(c, stops, func(p *printer) { p.saved(stops) })
		},
	}
}

func serveCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve boards, alerts and saved stops as JSON over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "HTTP port (overrides NEXTBUS_PORT)"},
			&cli.DurationFlag{Name: "refresh", Value: handler.DefaultRefresh, Usage: "board stream refresh interval"},
			&cli.DurationFlag{Name: "board-ttl", Value: handler.DefaultBoardTTL, Usage: "how long a board is reused, 0 to always refetch"},
		},
		Action: func(c *cli.Context) error {
			port := e.cfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			ctx, cancel := signalContext(c.Context)
			defer cancel()

			m := metrics.NewCollector()
			client, err := e.client(m)
			if err != nil {
				return err
			}
			db, err := e.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rt := realtime.NewStore()
			if e.cfg.AlertsURL != "" && e.cfg.AlertsInterval > 0 {
				f := realtime.NewFetcher(e.cfg.AlertsURL, e.cfg.APIKey, e.cfg.AlertsInterval, rt, m, e.logger)
				go f.Start(ctx)
			} else {
				e.logger.Info("service alerts disabled")
			}

			h := handler.New(client, db, rt, m, e.logger)
			h.SetRefresh(c.Duration("refresh"))
			h.SetBoardTTL(c.Duration("board-ttl"))
			return server.New(port, h, m, e.logger).ListenAndServe(ctx)
		},
	}
}

// fetchAlerts loads alerts once, returning nil when they are disabled or
// unavailable.
func (e *env) fetchAlerts(c *cli.Context) *realtime.Store {
	if e.cfg.AlertsURL == "" {
		return nil
	}
	store := realtime.NewStore()
	f := realtime.NewFetcher(e.cfg.AlertsURL, e.cfg.APIKey, e.cfg.AlertsInterval, store, nil, e.logger)
	if err := f.Fetch(c.Context); err != nil {
		e.logger.Warn("service alerts unavailable", "error", err)
		return nil
	}
	return store
}
