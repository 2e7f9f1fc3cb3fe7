package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/mkueh/citibike-analyse/internal/graceful"
	"github.com/mkueh/citibike-analyse/internal/server"
	"github.com/mkueh/citibike-analyse/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a completed analysis over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		ctx, cancel := graceful.Context()
		defer cancel()

		analysis, err := store.LoadAnalysis(analysisPath(cfg.OutputDir()))
		if err != nil {
			log.Fatalf("loading analysis: %v", err)
		}

		srv := server.New(cfg.ServeAddr, *analysis, cfg.OnlyIntersected)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("server error: %v", err)
		}
		log.Println("server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
