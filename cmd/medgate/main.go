package main

import (
	"os"

	"github.com/spf13/cobra"

	historycmder "github.com/caremesh/medgate/cmd/medgate/history"
	servecmder "github.com/caremesh/medgate/cmd/medgate/serve"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medgate",
		Short: "Supervisor gateway for the medical conversational assistant",
		Long: `medgate fronts the specialist diagnostic agents with a safety pipeline
and a turn router. Every inbound turn is validated, rate limited and
checked for domain fit before it reaches a backend, and the full
exchange is persisted to the transcript store.`,
	}

	rootCmd.AddCommand(servecmder.NewServeCmd())
	rootCmd.AddCommand(historycmder.NewHistoryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
