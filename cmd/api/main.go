// @title CareHive API
// @version 1.0
// @description Seguimiento médico familiar: familiares, medicinas y estado de dosis, registros, citas y acceso de médicos.
// @BasePath /
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"carehive/internal/adapters/auth/jwtauth"
	"carehive/internal/adapters/notify/dispatcher"
	"carehive/internal/adapters/notify/kafkasink"
	"carehive/internal/adapters/notify/logsender"
	"carehive/internal/adapters/notify/webhook"
	mdb "carehive/internal/adapters/storage/mongodb"
	pg "carehive/internal/adapters/storage/postgres"
	"carehive/internal/config"
	"carehive/internal/domain/doses"
	"carehive/internal/domain/medicines"
	"carehive/internal/platform/httpclient"
	"carehive/internal/platform/logger"
	"carehive/internal/platform/metrics"
	"carehive/internal/ports/auth"
	"carehive/internal/ports/notify"
	"carehive/internal/router"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carehive",
		Short: "CareHive API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dosesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	return cfg, log, nil
}

// stores abre el store configurado. close libera lo que se haya abierto.
type stores struct {
	db    *sql.DB
	mongo *mongo.Database
}

func openStores(ctx context.Context, cfg *config.Config) (stores, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return stores{}, nil, fmt.Errorf("open postgres: %w", err)
		}
		return stores{db: db}, func() { _ = db.Close() }, nil
	case config.StoreMongo:
		db, err := mdb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return stores{}, nil, err
		}
		if err := mdb.EnsureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(context.Background())
			return stores{}, nil, err
		}
		return stores{mongo: db}, func() { _ = db.Client().Disconnect(context.Background()) }, nil
	default:
		return stores{}, func() {}, nil
	}
}

func newSender(cfg *config.Config, log logger.Logger) (notify.Sender, func(), error) {
	switch cfg.NotifySink {
	case config.SinkWebhook:
		c, err := httpclient.New(httpclient.Config{UserAgent: cfg.AppName})
		if err != nil {
			return nil, nil, err
		}
		return webhook.New(c, cfg.NotifyWebhookURL), func() {}, nil
	case config.SinkKafka:
		s := kafkasink.New(cfg.Brokers(), cfg.KafkaTopic)
		return s, func() { _ = s.Close() }, nil
	default:
		return logsender.New(log), func() {}, nil
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the dose refresher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			loc, _ := cfg.Location()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, closeStores, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			sender, closeSender, err := newSender(cfg, log)
			if err != nil {
				return err
			}
			defer closeSender()

			disp := dispatcher.New(sender, log)
			defer disp.Close()

			var verifier auth.AuthVerifier
			if cfg.JWTSecret != "" {
				verifier = jwtauth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
			} else {
				log.Warn("JWT_SECRET not set: dev mode, X-Debug-User-ID accepted", nil)
			}

			app := router.New(router.Options{
				AuthVerifier: verifier,
				DB:           st.db,
				Mongo:        st.mongo,
				Logger:       log,
				Metrics:      metrics.New(),
				Scheduler:    disp,
				Location:     loc,
			})

			refresher := doses.NewRefresher(cfg.RefreshInterval, app.Medicines.RefreshAll, log)
			app.Medicines.OnChange(refresher.Trigger)

			refreshDone := make(chan struct{})
			go func() {
				defer close(refreshDone)
				_ = refresher.Run(ctx)
			}()

			srv := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      app.Handler,
				ReadTimeout:  5 * time.Second,
				WriteTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting server", map[string]any{"addr": srv.Addr, "store": cfg.StoreDriver, "sink": cfg.NotifySink})
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					stop()
					<-refreshDone
					return fmt.Errorf("server error: %w", err)
				}
			}

			log.Info("shutting down", nil)
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error("shutdown failed", map[string]any{"error": err})
			}
			<-refreshDone
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the Postgres schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.StorePostgres {
				return fmt.Errorf("migrate requires STORE_DRIVER=%s", config.StorePostgres)
			}

			db, err := pg.Open(cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open postgres: %w", err)
			}
			defer db.Close()

			if err := pg.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema applied", nil)
			return nil
		},
	}
}

func dosesCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "doses",
		Short: "Print the current Due/Next/Taken board for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			loc, _ := cfg.Location()

			st, closeStores, err := openStores(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStores()

			// sin Scheduler: solo lectura, no se agendan recordatorios
			app := router.New(router.Options{
				DB:       st.db,
				Mongo:    st.mongo,
				Logger:   log,
				Location: loc,
			})

			items := app.Medicines.Status(cmd.Context(), userID)
			medicines.SortBoard(items)
			return printBoard(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "account user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printBoard(out io.Writer, items []medicines.BoardItem) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tTIME\tMEDICINE\tRELATION\tTAKEN TODAY")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			it.Status.Status,
			it.Status.CurrentTime,
			it.Medicine.Name,
			it.Medicine.Relation,
			it.Status.TakenToday,
		)
	}
	return tw.Flush()
}
