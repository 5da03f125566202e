package servecmder

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caremesh/medgate/gateway"
	"github.com/caremesh/medgate/pkg/logger"
)

const serveLongDesc string = `Run the medgate gateway server.

The gateway exposes POST /api/v1/turn and routes each validated turn to
the skin, oral, vision or report backend. Configuration is read from an
optional TOML file and overridden by flags.

Examples:
  medgate serve --config /etc/medgate/medgate.toml
  medgate serve --skin-url http://localhost:7001 --oral-url http://localhost:7002 \
    --vision-url http://localhost:7003 --report-url http://localhost:7004 --db medgate.db`

const serveShortDesc string = "Run the gateway server"

type serveCommander struct {
	configPath string
	listenAddr string
	dbPath     string
	skinURL    string
	oralURL    string
	visionURL  string
	reportURL  string
	noSecurity bool
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", ":8080", "Address to listen on")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite transcript database (default: in-memory)")
	cmd.Flags().StringVar(&cmder.skinURL, "skin-url", "", "Skin text agent URL")
	cmd.Flags().StringVar(&cmder.oralURL, "oral-url", "", "Oral text agent URL")
	cmd.Flags().StringVar(&cmder.visionURL, "vision-url", "", "Vision classification agent URL")
	cmd.Flags().StringVar(&cmder.reportURL, "report-url", "", "Report generation agent URL")
	cmd.Flags().BoolVar(&cmder.noSecurity, "no-security", false, "Disable the safety pipeline (admits every turn)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	config := gateway.DefaultConfig()

	if c.configPath != "" {
		if err := gateway.LoadConfigFile(c.configPath, &config); err != nil {
			return err
		}
	}

	// Flags override the file, but only when explicitly set.
	flags := cmd.Flags()
	if flags.Changed("listen") {
		config.ListenAddr = c.listenAddr
	}
	if flags.Changed("db") {
		config.DBPath = c.dbPath
	}
	if flags.Changed("skin-url") {
		config.SkinAgentURL = c.skinURL
	}
	if flags.Changed("oral-url") {
		config.OralAgentURL = c.oralURL
	}
	if flags.Changed("vision-url") {
		config.VisionAgentURL = c.visionURL
	}
	if flags.Changed("report-url") {
		config.ReportAgentURL = c.reportURL
	}
	if c.noSecurity {
		config.SecurityEnabled = false
	}

	log := logger.NewLogger(c.debug)
	defer log.Sync()

	log.Info("medgate gateway starting",
		zap.String("listen", config.ListenAddr),
		zap.Bool("debug", c.debug),
	)

	g, err := gateway.New(config, log)
	if err != nil {
		return err
	}
	defer g.Close()

	return g.Run()
}
