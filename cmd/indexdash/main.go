// indexdash: stock index dashboard
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/indexdash/api"
	"github.com/seenimoa/indexdash/internal/config"
	"github.com/seenimoa/indexdash/internal/dashboard"
	"github.com/seenimoa/indexdash/internal/datasource"
	"github.com/seenimoa/indexdash/internal/logging"
	"github.com/seenimoa/indexdash/internal/report"
	"github.com/seenimoa/indexdash/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *log.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "indexdash",
	Short: "S&P 500 and Nifty stock dashboard",
	Long: `indexdash shows the close-price history, company profile and selected
income statement and cash flow rows for any constituent of the S&P 500 or
the Nifty index, as a web dashboard or in the terminal.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = strings.ToLower(level)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = logging.New(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(configCmd)
}

// newAggregator builds the market data layer from the configuration.
func newAggregator(c *config.Config) *datasource.Aggregator {
	return datasource.NewAggregator(datasource.Options{
		Timeout:   time.Duration(c.Provider.TimeoutSeconds) * time.Second,
		UserAgent: c.Provider.UserAgent,
		SymbolURLs: map[models.IndexID]string{
			models.IndexSP500: c.Sources.SP500URL,
			models.IndexNifty: c.Sources.NiftyURL,
		},
		Endpoints: datasource.Endpoints{
			Chart:        c.Provider.ChartURL,
			QuoteSummary: c.Provider.QuoteSummaryURL,
			Timeseries:   c.Provider.TimeseriesURL,
			Crumb:        c.Provider.CrumbURL,
			Cookie:       c.Provider.CookieURL,
		},
		HeadlinesURL: c.Provider.HeadlinesURL,
		RateLimit:    c.Provider.RateLimit,
		RateBurst:    c.Provider.RateBurst,
	})
}

// optionalSources returns the quote and headline sources the config
// enables. Disabled sources are untyped nils so the dashboard skips them.
func optionalSources(c *config.Config, agg *datasource.Aggregator) (dashboard.QuoteSource, dashboard.HeadlineSource) {
	var quotes dashboard.QuoteSource
	var news dashboard.HeadlineSource
	if c.Dashboard.LiveQuote {
		quotes = agg
	}
	if c.Dashboard.Headlines {
		news = agg
	}
	return quotes, news
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("indexdash %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (HTTP Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Server.Port = port
		}

		agg := newAggregator(cfg)
		quotes, news := optionalSources(cfg, agg)
		srv, err := api.NewServer(cfg, api.Options{
			Data:    agg,
			Quotes:  quotes,
			News:    news,
			Logger:  logger,
			Version: version,
		})
		if err != nil {
			return err
		}

		logger.Info().
			Str("version", version).
			Str("config", cfg.File).
			Str("default_index", cfg.Dashboard.DefaultIndex).
			Msgf("indexdash listening on http://%s", cfg.Server.Addr())
		return srv.ListenAndServe(cfg.Server.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
}

// --- Show Command (terminal rendition) ---

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render the dashboard for one ticker in the terminal",
	Example: `  indexdash show --index sp500 --ticker AAPL --start 01/01/2023 --end 31/12/2023
  indexdash show --index nifty --ticker TCS.NS --start 01/01/2023 --end 31/12/2023 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetString("index")
		ticker, _ := cmd.Flags().GetString("ticker")
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")
		format, _ := cmd.Flags().GetString("format")
		color, _ := cmd.Flags().GetBool("color")

		agg := newAggregator(cfg)
		quotes, news := optionalSources(cfg, agg)
		dash := dashboard.New(agg, quotes, news, dashboard.Options{
			DefaultIndex:    models.IndexID(cfg.Dashboard.DefaultIndex),
			StrictLineItems: cfg.Dashboard.StrictLineItems,
			HeadlineLimit:   cfg.Dashboard.HeadlineLimit,
			Logger:          logger,
		})

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()

		v := dash.Run(ctx, dashboard.NewSession(), dashboard.Input{Index: index, Ticker: ticker, Start: start, End: end})

		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		case "text", "":
			return report.RenderText(cmd.OutOrStdout(), v, report.TextOptions{Color: color})
		default:
			return fmt.Errorf("unknown format %q (text, json)", format)
		}
	},
}

func init() {
	showCmd.Flags().String("index", "", "index id or name (sp500, nifty); default from config")
	showCmd.Flags().String("ticker", "", "ticker symbol; defaults to the first listed symbol")
	showCmd.Flags().String("start", "", "start date (dd/mm/yyyy)")
	showCmd.Flags().String("end", "", "end date (dd/mm/yyyy)")
	showCmd.Flags().String("format", "text", "output format (text, json)")
	showCmd.Flags().Bool("color", false, "colorize terminal output")
}

// --- Symbols Command ---

var symbolsCmd = &cobra.Command{
	Use:   "symbols",
	Short: "List the constituent symbols of an index",
	RunE: func(cmd *cobra.Command, args []string) error {
		index, _ := cmd.Flags().GetString("index")
		if index == "" {
			index = cfg.Dashboard.DefaultIndex
		}
		ix, ok := models.LookupIndex(index)
		if !ok {
			return fmt.Errorf("%w %q", dashboard.ErrUnknownIndex, index)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Provider.TimeoutSeconds)*time.Second)
		defer cancel()

		symbols, err := newAggregator(cfg).ListSymbols(ctx, ix)
		if err != nil {
			return errors.New(strings.Join(datasource.Describe(err), "; "))
		}
		for _, s := range symbols {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		logger.Info().Str("index", ix.Name).Int("count", len(symbols)).Msg("symbols listed")
		return nil
	},
}

func init() {
	symbolsCmd.Flags().String("index", "", "index id or name (sp500, nifty); default from config")
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg.File != "" {
			fmt.Fprintf(out, "# loaded from %s\n", cfg.File)
		} else {
			fmt.Fprintln(out, "# no config file found; defaults and environment only")
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(cfg)
	},
}
