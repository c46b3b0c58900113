package loadtest

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ether/etherdoc/lib/cli"
	"github.com/ether/etherdoc/lib/document"
	"github.com/ether/etherdoc/lib/hooks/events"
	"github.com/ether/etherdoc/lib/models/ws"
	"go.uber.org/zap"
)

const defaultHost = "http://127.0.0.1:9001"

var errTooManyPending = errors.New("too many appends not yet confirmed by the server")

func RunFromCLI(logger *zap.SugaredLogger, args []string) error {
	cfg, err := parseRunArgs(args)
	if err != nil {
		return err
	}
	_, err = NewRunner(cfg, logger).Run()
	return err
}

type Config struct {
	Host          string
	Authors       int
	Lurkers       int
	Duration      time.Duration
	LoadUntilFail bool
	AppendEvery   time.Duration
	Silent        bool
}

func parseRunArgs(args []string) (Config, error) {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	host := fs.String("host", defaultHost, "The server or document URL to test")
	authors := fs.Int("authors", 0, "Number of authors")
	fs.IntVar(authors, "a", 0, "Number of authors (shorthand)")
	lurkers := fs.Int("lurkers", 0, "Number of lurkers")
	duration := fs.Int("duration", 0, "Duration of the test in seconds")
	fs.IntVar(duration, "d", 0, "Duration of the test in seconds (shorthand)")
	untilFail := fs.Bool("loadUntilFail", false, "Load until the server fails")

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		*host = args[0]
		args = args[1:]
	}

	err := fs.Parse(args)
	return Config{
		Host:          *host,
		Authors:       *authors,
		Lurkers:       *lurkers,
		Duration:      time.Duration(*duration) * time.Second,
		LoadUntilFail: *untilFail,
		AppendEvery:   400 * time.Millisecond,
		Silent:        os.Getenv("SILENT_METRICS") == "true",
	}, err
}

type Metrics struct {
	ClientsConnected int64
	AuthorsConnected int64
	LurkersConnected int64
	AppendSent       int64
	ErrorCount       int64
	AcceptedAppends  int64
	ChangeFromServer int64
	StartTime        time.Time
}

func (m *Metrics) snapshot() Metrics {
	return Metrics{
		ClientsConnected: atomic.LoadInt64(&m.ClientsConnected),
		AuthorsConnected: atomic.LoadInt64(&m.AuthorsConnected),
		LurkersConnected: atomic.LoadInt64(&m.LurkersConnected),
		AppendSent:       atomic.LoadInt64(&m.AppendSent),
		ErrorCount:       atomic.LoadInt64(&m.ErrorCount),
		AcceptedAppends:  atomic.LoadInt64(&m.AcceptedAppends),
		ChangeFromServer: atomic.LoadInt64(&m.ChangeFromServer),
		StartTime:        m.StartTime,
	}
}

// Runner drives authors and lurkers against one document.
type Runner struct {
	cfg     Config
	target  string
	logger  *zap.SugaredLogger
	stats   Metrics
	maxPS   float64
	uiLock  sync.Mutex
	clients []*cli.Document
	lock    sync.Mutex
	failed  chan error
	stop    chan struct{}
}

func NewRunner(cfg Config, logger *zap.SugaredLogger) *Runner {
	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.AppendEvery <= 0 {
		cfg.AppendEvery = 400 * time.Millisecond
	}
	target := cfg.Host
	if !strings.Contains(target, "/api/documents/") {
		target = fmt.Sprintf("%s/api/documents/%s", strings.TrimSuffix(target, "/"), gofakeit.LetterN(10))
	}
	return &Runner{
		cfg:    cfg,
		target: target,
		logger: logger,
		failed: make(chan error, 1),
		stop:   make(chan struct{}),
	}
}

func (r *Runner) fail(err error) {
	select {
	case r.failed <- err:
	default:
	}
}

func (r *Runner) updateMetricsUI() {
	if r.cfg.Silent {
		return
	}
	r.uiLock.Lock()
	defer r.uiLock.Unlock()

	stats := r.stats.snapshot()
	testDuration := time.Since(stats.StartTime)

	fmt.Print("\033[2J\033[0;0H")
	fmt.Printf("Load Test Metrics -- Target Document %s\n\n", r.target)
	fmt.Printf("Local Clients Connected: %d\n", stats.ClientsConnected)
	fmt.Printf("Authors Connected: %d\n", stats.AuthorsConnected)
	fmt.Printf("Lurkers Connected: %d\n", stats.LurkersConnected)
	fmt.Printf("Sent Append messages: %d\n", stats.AppendSent)
	fmt.Printf("Errors: %d\n", stats.ErrorCount)
	fmt.Printf("Appends confirmed by server: %d\n", stats.AcceptedAppends)
	fmt.Printf("Changes sent from Server to Client: %d\n", stats.ChangeFromServer)

	durationSec := testDuration.Seconds()
	if durationSec > 0 {
		rate := float64(stats.ChangeFromServer) / durationSec
		fmt.Printf("Mean(per second) of # of Changes sent from Server to Client: %.0f\n", rate)
		if rate > r.maxPS {
			r.maxPS = rate
		}
		fmt.Printf("Max(per second) of # of Changes: %.0f\n", r.maxPS)
	}

	if pending := stats.AppendSent - stats.AcceptedAppends; pending > 5 {
		fmt.Printf("Number of appends not yet confirmed by the server: %d\n", pending)
	}
	fmt.Printf("Seconds test has been running for: %d\n", int(durationSec))
}

func (r *Runner) connect() (*cli.Document, error) {
	d, err := cli.Connect(r.target, r.logger)
	if err != nil {
		atomic.AddInt64(&r.stats.ErrorCount, 1)
		return nil, err
	}
	r.lock.Lock()
	r.clients = append(r.clients, d)
	r.lock.Unlock()

	d.OnDisconnect(func(any) {
		select {
		case <-r.stop:
		default:
			atomic.AddInt64(&r.stats.ErrorCount, 1)
			r.fail(fmt.Errorf("connection to %s lost", r.target))
		}
	})
	d.OnError(func(msg ws.ErrorMessage) {
		atomic.AddInt64(&r.stats.ErrorCount, 1)
		r.logger.Warnf("server error: %s", msg.Message)
	})
	d.OnChanged(func(events.DocumentChanged) {
		atomic.AddInt64(&r.stats.ChangeFromServer, 1)
	})
	return d, nil
}

func (r *Runner) newAuthor() {
	d, err := r.connect()
	if err != nil {
		r.fail(err)
		return
	}

	var own atomic.Int64
	d.OnChanged(func(change events.DocumentChanged) {
		// changes are broadcast to every client, so this is an upper bound
		if change.Label == document.KindInsertText && own.Load() > 0 {
			own.Add(-1)
			atomic.AddInt64(&r.stats.AcceptedAppends, 1)
			r.updateMetricsUI()
		}
	})

	d.OnConnected(func(ws.Snapshot) {
		atomic.AddInt64(&r.stats.ClientsConnected, 1)
		atomic.AddInt64(&r.stats.AuthorsConnected, 1)
		r.updateMetricsUI()

		ticker := time.NewTicker(r.cfg.AppendEvery)
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-r.stop:
					return
				case <-ticker.C:
					own.Add(1)
					atomic.AddInt64(&r.stats.AppendSent, 1)
					if err := d.Append(gofakeit.LoremIpsumWord()); err != nil {
						atomic.AddInt64(&r.stats.ErrorCount, 1)
						r.logger.Warnf("append failed: %v", err)
					}
					r.updateMetricsUI()
				}
			}
		}()
	})
}

func (r *Runner) newLurker() {
	d, err := r.connect()
	if err != nil {
		r.fail(err)
		return
	}
	d.OnConnected(func(ws.Snapshot) {
		atomic.AddInt64(&r.stats.ClientsConnected, 1)
		atomic.AddInt64(&r.stats.LurkersConnected, 1)
		r.updateMetricsUI()
	})
}

func (r *Runner) spawn(users []string) {
	for _, t := range users {
		select {
		case <-r.stop:
			return
		default:
		}
		if t == "l" {
			r.newLurker()
		} else {
			r.newAuthor()
		}
		time.Sleep(200 * time.Millisecond / time.Duration(len(users)))
	}
}

// Run blocks until the duration has passed or the server stops keeping up,
// and returns the final counters.
func (r *Runner) Run() (Metrics, error) {
	r.stats.StartTime = time.Now()
	defer r.shutdown()

	var endTime time.Time
	if r.cfg.Duration > 0 {
		endTime = r.stats.StartTime.Add(r.cfg.Duration)
	}

	if r.cfg.Authors > 0 || r.cfg.Lurkers > 0 {
		var users []string
		for i := 0; i < r.cfg.Lurkers; i++ {
			users = append(users, "l")
		}
		for i := 0; i < r.cfg.Authors; i++ {
			users = append(users, "a")
		}
		go r.spawn(users)
	} else {
		if r.cfg.Duration > 0 {
			fmt.Printf("Creating load for %d seconds\n", int(r.cfg.Duration.Seconds()))
		} else {
			fmt.Println("Creating load until the server stops responding in a timely fashion")
		}

		// 3 lurkers per author, more every second
		go func() {
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-r.stop:
					return
				case <-ticker.C:
					r.spawn([]string{"a", "l", "l", "l"})
				}
			}
		}()
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-r.failed:
			return r.stats.snapshot(), err
		case <-ticker.C:
		}

		if !endTime.IsZero() && time.Now().After(endTime) {
			fmt.Println("Test duration complete and Load Tests PASS")
			final := r.stats.snapshot()
			fmt.Printf("%+v\n", final)
			return final, nil
		}

		if r.cfg.LoadUntilFail {
			stats := r.stats.snapshot()
			if pending := stats.AppendSent - stats.AcceptedAppends; pending > 100 {
				fmt.Printf("Load test failed: too many pending appends (%d)\n", pending)
				return stats, errTooManyPending
			}
		}
	}
}

func (r *Runner) shutdown() {
	close(r.stop)
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, d := range r.clients {
		d.Close()
	}
}
