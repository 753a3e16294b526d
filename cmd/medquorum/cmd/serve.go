package cmd

import (
	"github.com/spf13/cobra"

	"github.com/medquorum/medquorum/internal/adapters/results"
	"github.com/medquorum/medquorum/internal/api"
)

var (
	serveAddr    string
	serveResults string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only HTTP API over a run's results",
	Long: `Serve exposes list, fetch-by-idx, and summary endpoints over a results
file or database. By default the results file is watched, so the API
stays current while a run is still appending.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveResults, "results", "", "results path (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the results file for changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	path := serveResults
	if path == "" {
		path = cfg.Results.Path
	}

	store, err := results.NewStore(cfg.Results.Backend, path)
	if err != nil {
		return err
	}
	defer func() { _ = results.CloseStore(store) }()

	source := api.NewSource(store, log)
	watch := cfg.Server.Watch && !serveNoWatch
	if watch && cfg.Results.Backend == results.BackendJSONL {
		if err := source.Watch(cmd.Context(), path); err != nil {
			log.Warn("results watch unavailable", "error", err)
		}
	}

	server := api.NewServer(source, cfg.Server.AllowedOrigins, log)
	return server.ListenAndServe(cmd.Context(), addr)
}
