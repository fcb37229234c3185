package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"leadfinder/internal/cache"
	"leadfinder/internal/config"
	"leadfinder/internal/database"
	"leadfinder/internal/exclusion"
	"leadfinder/internal/export"
	"leadfinder/internal/geo"
	"leadfinder/internal/places"
	"leadfinder/internal/search"
	"leadfinder/internal/types"
)

// options are the command-line flags.
type options struct {
	address     string
	radiusMiles float64
	keyword     string
	divisions   int

	csvPath      string
	mapPath      string
	boundaryPath string
	configPath   string
	envPath      string
	leadsPath    string

	upload      bool
	save        bool
	skipFailed  bool
	interactive bool
	showLeads   bool
}

func parseFlags(args []string, errOut io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("leadfinder", flag.ContinueOnError)
	fs.SetOutput(errOut)

	fs.StringVar(&o.address, "address", "", "center address or place name (or pass it as arguments)")
	fs.Float64Var(&o.radiusMiles, "radius", 10, "search radius in miles (1-50)")
	fs.StringVar(&o.keyword, "keyword", "", "business keyword, blank for all businesses")
	fs.IntVar(&o.divisions, "divisions", 2, "grid divisions per side (1-4)")
	fs.StringVar(&o.csvPath, "csv", "", "write leads to this CSV file")
	fs.StringVar(&o.mapPath, "map", "", "write leads to this point shapefile (.shp)")
	fs.StringVar(&o.boundaryPath, "boundary", "", "keep only leads inside the polygons of this shapefile")
	fs.StringVar(&o.configPath, "config", "", "optional YAML config file")
	fs.StringVar(&o.envPath, "env", ".env", "optional .env file")
	fs.StringVar(&o.leadsPath, "leads-file", leadsFile, "saved leads shortlist")
	fs.BoolVar(&o.upload, "s3", false, "upload the CSV to S3_BUCKET")
	fs.BoolVar(&o.save, "save", false, "store the run and its leads in the Oracle database")
	fs.BoolVar(&o.skipFailed, "skip-failed-cells", false, "continue when a grid cell fails and report it")
	fs.BoolVar(&o.interactive, "interactive", false, "browse results with the arrow keys")
	fs.BoolVar(&o.showLeads, "leads", false, "browse the saved leads shortlist and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.address == "" && fs.NArg() > 0 {
		o.address = strings.Join(fs.Args(), " ")
	}
	return o, nil
}

// request converts the flags into a search request; validation happens in the pipeline.
func (o options) request(address string) types.SearchRequest {
	return types.SearchRequest{
		CenterAddress: strings.TrimSpace(address),
		RadiusMeters:  o.radiusMiles * types.MetersPerMile,
		Keyword:       strings.TrimSpace(o.keyword),
		GridDivisions: o.divisions,
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	color := term.IsTerminal(int(os.Stdout.Fd()))

	if opts.showLeads {
		showLeads(opts.leadsPath, color)
		return 0
	}

	cfg, err := config.Load(opts.envPath, opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		return 1
	}
	log := cfg.Logger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, opts, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, userMessage(err))
		return 1
	}
	defer a.Close()
	a.color = color

	// If the user provided an address, run once.
	if opts.address != "" {
		if err := a.search(ctx, opts.address); err != nil {
			fmt.Fprintln(os.Stderr, userMessage(err))
			return 1
		}
		return 0
	}

	// Interactive loop for multiple searches.
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("Enter center address (blank to quit): ")
		input, _ := reader.ReadString('\n')
		address := strings.TrimSpace(input)
		if address == "" {
			return 0
		}
		if err := a.search(ctx, address); err != nil {
			fmt.Fprintln(os.Stderr, userMessage(err))
			if ctx.Err() != nil {
				return 1
			}
		}
	}
}

// app holds the wired pipeline and optional sinks for the life of the process.
type app struct {
	opts     options
	log      zerolog.Logger
	color    bool
	pipeline *search.Pipeline
	rules    exclusion.Rules
	bucket   string

	rdb      *redis.Client
	db       *database.Database
	uploader *export.S3Uploader
}

func newApp(ctx context.Context, cfg *config.Config, opts options, log zerolog.Logger) (*app, error) {
	terms, err := exclusion.LoadTerms(cfg.ExclusionFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("terms", len(terms)).Str("file", cfg.ExclusionFile).Msg("Loaded exclusion terms")

	a := &app{opts: opts, log: log, rules: exclusion.NewRules(terms), bucket: cfg.S3Bucket}

	client := places.NewClient(cfg.APIKey,
		places.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		places.WithLogger(log))
	var details search.DetailSource = client

	if cfg.CacheEnabled() {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, details will not be cached")
			rdb.Close()
		} else {
			a.rdb = rdb
			details = cache.NewDetailCache(rdb, client, cfg.RedisTTL, log)
		}
	}

	pipelineOpts := []search.Option{
		search.WithPageDelay(cfg.PageDelay),
		search.WithTokenRetries(cfg.TokenRetries),
		search.WithCellWorkers(cfg.CellWorkers),
		search.WithDetailWorkers(cfg.DetailWorkers),
		search.WithLogger(log),
		search.WithStateHook(func(s search.State) {
			log.Debug().Stringer("state", s).Msg("Pipeline progress")
		}),
	}
	if opts.skipFailed {
		pipelineOpts = append(pipelineOpts, search.WithFailurePolicy(search.SkipFailedCells))
	}
	if opts.boundaryPath != "" {
		b, err := geo.LoadBoundary(opts.boundaryPath)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info().Int("polygons", b.Len()).Strs("names", b.Names()).Str("file", opts.boundaryPath).Msg("Loaded boundary")
		pipelineOpts = append(pipelineOpts, search.WithBoundary(b))
	}
	a.pipeline = search.NewPipeline(client, client, details, pipelineOpts...)

	if opts.save {
		if !cfg.DatabaseEnabled() {
			a.Close()
			return nil, errors.New("--save needs database credentials (DB_USERNAME, DB_PASSWORD, ...)")
		}
		db, err := database.NewDatabase(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = db
	}

	if opts.upload {
		if cfg.S3Bucket == "" {
			a.Close()
			return nil, errors.New("--s3 needs S3_BUCKET")
		}
		u, err := export.NewS3UploaderFromEnv(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.uploader = u
	}
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// search runs one pipeline invocation and sends the leads to every configured output.
func (a *app) search(ctx context.Context, address string) error {
	fmt.Printf("Searching around %q...\n", address)
	res, err := a.pipeline.Run(ctx, a.opts.request(address), a.rules)
	if err != nil {
		return err
	}

	renderSummary(os.Stdout, res)
	if len(res.Leads) == 0 {
		fmt.Println("No leads found.")
		return nil
	}
	lines := renderTable(os.Stdout, res.Leads, a.color)

	if err := a.export(ctx, res); err != nil {
		return err
	}

	if a.opts.interactive {
		fmt.Println("Use ↑/↓ and Enter for details, Esc to exit.")
		interactiveSelect(res.Leads, lines, a.opts.leadsPath)
	}
	return nil
}

func (a *app) export(ctx context.Context, res *search.Result) error {
	if a.opts.csvPath != "" || a.uploader != nil {
		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, res.Leads); err != nil {
			return err
		}
		if a.opts.csvPath != "" {
			if err := os.WriteFile(a.opts.csvPath, buf.Bytes(), 0644); err != nil {
				return fmt.Errorf("write %s: %w", a.opts.csvPath, err)
			}
			fmt.Printf("Wrote %d leads to %s\n", len(res.Leads), a.opts.csvPath)
		}
		if a.uploader != nil {
			uri, err := a.uploader.Upload(ctx, a.bucket, fmt.Sprintf("leads/%s.csv", res.RunID), buf.Bytes())
			if err != nil {
				return err
			}
			fmt.Printf("Uploaded to %s\n", uri)
		}
	}

	if a.opts.mapPath != "" {
		if err := export.WriteShapefile(a.opts.mapPath, res.Leads); err != nil {
			return err
		}
		fmt.Printf("Wrote map layer to %s\n", a.opts.mapPath)
	}

	if a.db != nil {
		if err := a.db.SaveRun(ctx, res.RunID, res.Request, res.Leads); err != nil {
			return err
		}
		stored, err := a.db.CountLeads(ctx, res.RunID)
		if err != nil {
			return err
		}
		a.log.Info().Str("run_id", res.RunID).Int("stored", stored).Msg("Saved run to database")
	}
	return nil
}
