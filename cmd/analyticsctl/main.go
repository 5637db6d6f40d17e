// Command analyticsctl is an operator CLI for managing services directly
// against the database, and a synthetic load generator used to exercise a
// running analyticsd instance during development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/beaconstat/analytics/internal/config"
	"github.com/beaconstat/analytics/internal/domain"
	"github.com/beaconstat/analytics/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "create-service":
		cmdCreateService(os.Args[2:])
	case "list-services":
		cmdListServices(os.Args[2:])
	case "delete-service":
		cmdDeleteService(os.Args[2:])
	case "loadtest":
		cmdLoadtest(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: analyticsctl <command> [flags]

commands:
  create-service -name NAME [-origins ORIGINS]
  list-services
  delete-service -id ID
  loadtest -endpoint URL [-tracking-id ID] [-rps N] [-duration D]`)
}

func openStore() *store.Store {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	st, err := store.Open(cfg.DatabaseURL, cfg.DatabaseMaxOpenConn, cfg.DatabaseMaxIdleConn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "database error:", err)
		os.Exit(1)
	}
	return st
}

func cmdCreateService(args []string) {
	fs := flag.NewFlagSet("create-service", flag.ExitOnError)
	name := fs.String("name", "", "service name")
	origins := fs.String("origins", "*", "comma-separated allowed origins, or * for any")
	_ = fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		os.Exit(1)
	}

	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	svc, err := st.CreateService(ctx, domain.Service{
		Name:              *name,
		Origins:           *origins,
		AggressiveSalting: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "create failed:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(svc)
}

func cmdListServices(args []string) {
	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	services, err := st.ListServices(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list failed:", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(services)
}

func cmdDeleteService(args []string) {
	fs := flag.NewFlagSet("delete-service", flag.ExitOnError)
	id := fs.String("id", "", "service id")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "-id is required")
		os.Exit(1)
	}

	serviceID, err := uuid.Parse(*id)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid id:", err)
		os.Exit(1)
	}

	st := openStore()
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := st.DeleteService(ctx, serviceID); err != nil {
		fmt.Fprintln(os.Stderr, "delete failed:", err)
		os.Exit(1)
	}
	fmt.Println("deleted")
}

var sampleLocations = []string{"/", "/pricing", "/docs", "/blog/post-1", "/about"}
var sampleReferrers = []string{"", "https://google.com", "https://news.ycombinator.com", "https://twitter.com"}
var sampleUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) Safari/605.1",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Safari/604.1",
	"Mozilla/5.0 (X11; Linux x86_64) Firefox/121.0",
}

// cmdLoadtest fires a steady stream of synthetic pixel beacons at a running
// analyticsd instance, ticking on a cron schedule rather than a plain
// time.Ticker so the same flag-driven cadence can double as an
// operator-installed recurring smoke test.
func cmdLoadtest(args []string) {
	fs := flag.NewFlagSet("loadtest", flag.ExitOnError)
	endpoint := fs.String("endpoint", "http://localhost:8080", "analyticsd base URL")
	trackingID := fs.String("tracking-id", "", "service tracking id to beacon against")
	rps := fs.Int("rps", 5, "beacons per second")
	duration := fs.Duration("duration", 30*time.Second, "how long to run")
	_ = fs.Parse(args)

	if *trackingID == "" {
		fmt.Fprintln(os.Stderr, "-tracking-id is required")
		os.Exit(1)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	stop := time.After(*duration)
	done := make(chan struct{})

	c := cron.New(cron.WithSeconds())
	// @every schedules have one-second resolution, so each tick fires a full
	// second's worth of beacons.
	_, err := c.AddFunc("@every 1s", func() {
		for i := 0; i < *rps; i++ {
			go fireBeacon(client, *endpoint, *trackingID)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid schedule:", err)
		os.Exit(1)
	}
	c.Start()

	go func() {
		<-stop
		close(done)
	}()
	<-done
	ctx := c.Stop()
	<-ctx.Done()
	fmt.Println("loadtest finished")
}

func fireBeacon(client *http.Client, endpoint, trackingID string) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/trace/px_%s.gif", endpoint, trackingID), nil)
	if err != nil {
		return
	}
	q := req.URL.Query()
	q.Set("location", sampleLocations[rand.Intn(len(sampleLocations))])
	q.Set("referrer", sampleReferrers[rand.Intn(len(sampleReferrers))])
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", sampleUserAgents[rand.Intn(len(sampleUserAgents))])

	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "beacon request failed:", err)
		return
	}
	_ = resp.Body.Close()
}
