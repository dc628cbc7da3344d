package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/contactkeval/option-iv/internal/config"
	"github.com/contactkeval/option-iv/internal/data"
	"github.com/contactkeval/option-iv/internal/impliedvol"
	"github.com/contactkeval/option-iv/internal/logger"
	"github.com/contactkeval/option-iv/internal/metrics"
	"github.com/contactkeval/option-iv/internal/pricing"
	"github.com/contactkeval/option-iv/internal/report"
	"github.com/contactkeval/option-iv/internal/server"
)

func main() {
	flags := pflag.NewFlagSet("option-iv", pflag.ExitOnError)
	configPath := flags.String("config", "", "path to YAML/JSON/TOML config file")
	flags.String("source", config.SourceSynthetic, "quote source: synthetic, csv or massive")
	flags.String("csv", "", "CSV quote file (symbol,spot,strike,expiry,rate,price)")
	flags.StringSlice("method", nil, "solver method, repeatable: newton, bisection, approx or all")
	flags.String("format", config.FormatJSON, "report format: json or csv")
	flags.Bool("rest", false, "run as REST server")
	flags.String("port", ":8080", "REST server listen address")
	flags.IntP("verbosity", "v", int(logger.Info), "log verbosity: 0=error 1=info 2=debug 3=trace")
	flags.Int("workers", 0, "concurrent solver workers, 0 means one per CPU")
	_ = flags.Parse(os.Args[1:])

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Errorf("reading .env: %v", err)
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}
	logger.SetVerbosity(cfg.Verbosity)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		err = serve(ctx, cfg)
	} else {
		err = runBatch(ctx, cfg, os.Stdout)
	}
	if err != nil {
		logger.Errorf("%v", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	solver, err := cfg.SolverConfig()
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: server.New(solver, cfg.Workers, metrics.NewRecorder()),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("starting REST server on %s", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Infof("REST server stopped")
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, out io.Writer) error {
	solver, err := cfg.SolverConfig()
	if err != nil {
		return err
	}
	methods, err := cfg.SolverMethods()
	if err != nil {
		return err
	}
	prov, err := cfg.Provider()
	if err != nil {
		return err
	}

	start := time.Now()
	raw, err := data.FetchQuotes(ctx, prov)
	if err != nil {
		return err
	}

	quotes := make([]pricing.Quote, 0, len(raw))
	symbols := make([]string, 0, len(raw))
	for _, r := range raw {
		q, err := r.Quote()
		if err != nil {
			logger.Warnf("skipping %v", err)
			continue
		}
		if !q.WithinBounds() {
			logger.Debugf("%s price %.4f is outside the no-arbitrage bounds", r.Symbol, q.Price)
		}
		quotes = append(quotes, q)
		symbols = append(symbols, r.Symbol)
	}
	logger.Infof("solving %d quotes with %v", len(quotes), methods)

	outcomes, err := impliedvol.SolveAll(ctx, quotes, methods, solver, cfg.Workers)
	if err != nil {
		return err
	}

	rows := report.NewRows(outcomes, symbols)
	if cfg.Output.Format == config.FormatCSV {
		err = report.WriteCSV(out, rows)
	} else {
		err = report.WriteJSON(out, rows)
	}
	if err != nil {
		return err
	}

	sum := report.Summarize(rows)
	logger.Infof("[done] finished in %v: %d quotes, %d rows, %d converged, %d failed",
		time.Since(start), len(quotes), sum.Rows, sum.Converged, sum.Failed)
	return nil
}
