package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/tableside/api/internal/dashboard"
	"github.com/tableside/api/internal/enum"
	"github.com/tableside/api/internal/logger"
	"github.com/tableside/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	// CLI flags
	server := flag.String("server", "http://localhost:8081", "Base URL of the tableside server")
	token := flag.String("token", os.Getenv("TABLESIDE_TOKEN"), "Bearer token (see cmd/seed -tokens)")
	role := flag.String("role", enum.RoleWaiter, "Dashboard to run: WAITER, COOK or CUSTOMER")
	table := flag.Int("table", 0, "Table number (required for CUSTOMER)")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	log := logger.New(logger.Config{Level: *logLevel, Format: "console", Output: "stderr"})
	defer func() { _ = log.Sync() }()

	*role = strings.ToUpper(*role)
	if !enum.IsValidRole(*role) {
		log.Fatal("unknown role", zap.String("role", *role))
	}
	if *role == enum.RoleCustomer && *table <= 0 {
		log.Fatal("customer dashboard needs -table")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := dashboard.NewAPIClient(*server, *token, nil)
	listener, err := dashboard.NewListener(*server, *token, int32(*table),
		dashboard.WithListenerLogger(log.Named("listener")))
	if err != nil {
		log.Fatal("invalid server url", zap.Error(err))
	}

	var run func(ctx context.Context, in *bufio.Scanner, out io.Writer)
	switch *role {
	case enum.RoleWaiter, enum.RoleManager:
		w := dashboard.NewWaiter(api, log.Named("waiter"))
		w.LoadMenu(ctx)
		w.Attach(listener)
		run = waiterLoop(w, listener, int32(*table))
	case enum.RoleCook:
		c := dashboard.NewCook(api, log.Named("cook"))
		c.Attach(listener)
		run = cookLoop(c)
	case enum.RoleCustomer:
		c := dashboard.NewCustomer(api, int32(*table), log.Named("customer"))
		c.Attach(listener)
		run = customerLoop(c)
	}

	go func() {
		_ = listener.Run(ctx)
	}()

	fmt.Printf("%s dashboard connected to %s. Type \"help\" for commands.\n", *role, *server)
	done := make(chan struct{})
	go func() {
		run(ctx, bufio.NewScanner(os.Stdin), os.Stdout)
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
}

func waiterLoop(w *dashboard.Waiter, lis *dashboard.Listener, table int32) func(context.Context, *bufio.Scanner, io.Writer) {
	return func(ctx context.Context, in *bufio.Scanner, out io.Writer) {
		for prompt(out, "waiter"); in.Scan(); prompt(out, "waiter") {
			cmd, arg := split(in.Text())
			switch cmd {
			case "":
			case "help":
				fmt.Fprintln(out, "table <n> | menu | add <item> | show | send | quit")
			case "table":
				n, err := strconv.Atoi(arg)
				if err != nil || n <= 0 {
					fmt.Fprintln(out, "table must be a positive number")
					continue
				}
				table = int32(n)
			case "menu":
				for _, it := range w.Menu() {
					price := "-"
					if it.Price.Valid {
						price = it.Price.Decimal.StringFixed(2)
					}
					fmt.Fprintf(out, "  %-14s %6s  (%d left)\n", it.Name, price, it.AvailableQty)
				}
			case "add":
				if err := w.Stage(table, arg); err != nil {
					fmt.Fprintln(out, err)
				}
			case "show":
				if table <= 0 {
					fmt.Fprintln(out, dashboard.ErrNoTable)
					continue
				}
				for _, l := range w.Outstanding(table) {
					fmt.Fprintf(out, "  sent    %-14s x%d %s\n", l.Name, l.Quantity, l.Status)
				}
				for _, l := range w.Staged(table) {
					fmt.Fprintf(out, "  staged  %-14s x%d\n", l.Name, l.Quantity)
				}
				fmt.Fprintf(out, "  unsent value: %s\n", w.Pending(table).StringFixed(2))
			case "send":
				if err := w.Send(ctx, table); err != nil {
					fmt.Fprintln(out, err)
					continue
				}
				fmt.Fprintf(out, "table %d sent to the kitchen\n", table)
				// ask the server to re-check the table for every dashboard
				hint, err := ws.NewEvent(enum.EventOrderChanged, ws.TablePayload{TableNumber: table})
				if err == nil {
					err = lis.Send(hint)
				}
				if err != nil && !errors.Is(err, dashboard.ErrNotConnected) {
					fmt.Fprintln(out, "notify:", err)
				}
			case "quit", "exit":
				return
			default:
				fmt.Fprintf(out, "unknown command %q\n", cmd)
			}
		}
	}
}

func cookLoop(c *dashboard.Cook) func(context.Context, *bufio.Scanner, io.Writer) {
	return func(ctx context.Context, in *bufio.Scanner, out io.Writer) {
		if err := c.Refresh(ctx); err != nil {
			fmt.Fprintln(out, err)
		}
		for prompt(out, "cook"); in.Scan(); prompt(out, "cook") {
			cmd, arg := split(in.Text())
			switch cmd {
			case "":
			case "help":
				fmt.Fprintln(out, "list | ready <order#> <item> | quit")
			case "list":
				for i, o := range c.Orders() {
					fmt.Fprintf(out, "[%d] table %d\n", i+1, o.TableNumber)
					for _, l := range o.Lines {
						fmt.Fprintf(out, "      %-14s x%d %s\n", l.Name, l.Quantity, l.Status)
					}
				}
			case "ready":
				idxStr, item := split(arg)
				idx, err := strconv.Atoi(idxStr)
				orders := c.Orders()
				if err != nil || idx < 1 || idx > len(orders) || item == "" {
					fmt.Fprintln(out, "usage: ready <order#> <item>")
					continue
				}
				completed, err := c.MarkReady(ctx, orders[idx-1].ID, item)
				switch {
				case errors.Is(err, dashboard.ErrAlreadyReady):
					fmt.Fprintf(out, "%s is already ready\n", item)
				case err != nil:
					fmt.Fprintln(out, err)
				case completed:
					fmt.Fprintf(out, "table %d completed\n", orders[idx-1].TableNumber)
				}
			case "quit", "exit":
				return
			default:
				fmt.Fprintf(out, "unknown command %q\n", cmd)
			}
		}
	}
}

func customerLoop(c *dashboard.Customer) func(context.Context, *bufio.Scanner, io.Writer) {
	return func(ctx context.Context, in *bufio.Scanner, out io.Writer) {
		for prompt(out, "customer"); in.Scan(); prompt(out, "customer") {
			cmd, _ := split(in.Text())
			switch cmd {
			case "":
			case "help":
				fmt.Fprintln(out, "bill | quit")
			case "bill":
				// the listener keeps the bill current; fetch only before the first event
				b := c.Bill()
				if b == nil {
					var err error
					if b, err = c.FetchBill(ctx); err != nil {
						fmt.Fprintln(out, err)
						continue
					}
				}
				printBill(out, b)
			case "quit", "exit":
				return
			default:
				fmt.Fprintf(out, "unknown command %q\n", cmd)
			}
		}
	}
}

func printBill(out io.Writer, b *dashboard.Bill) {
	if b == nil {
		fmt.Fprintln(out, "nothing outstanding")
		return
	}
	for _, it := range b.Items {
		fmt.Fprintf(out, "  %-14s %6s x%-3d %8s\n", it.Name, it.Price.StringFixed(2), it.Quantity, it.Total.StringFixed(2))
	}
	fmt.Fprintf(out, "  %-29s %8s\n", "TOTAL", b.Total.StringFixed(2))
}

func prompt(out io.Writer, role string) {
	fmt.Fprintf(out, "%s> ", role)
}

func split(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}
