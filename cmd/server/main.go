package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go-markboard/internal/api"
	"go-markboard/internal/messaging"
	"go-markboard/internal/model"
	"go-markboard/internal/service"
	internalws "go-markboard/internal/websocket"
	"go-markboard/pkg/db"
	"go-markboard/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "markboard",
	Short:        "Markdown document server",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := db.AutoMigrate(a.db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		hub := internalws.NewHub(a.cfg.WebSocket)
		go hub.Run(ctx)

		kafkaCfg := a.cfg.Messaging.Kafka
		if kafkaCfg.Enabled {
			// 记录写入Kafka，推送由消费者驱动，可以看到所有实例的记录
			publisher, err := messaging.NewKafkaPublisher(kafkaCfg)
			if err != nil {
				return err
			}
			defer publisher.Close()
			a.activity.AddSink(publisher)

			feed, err := messaging.NewKafkaFeed(kafkaCfg, func(entry *model.ActivityLog) {
				_ = hub.Publish(entry)
			})
			if err != nil {
				return err
			}
			feed.Start()
			defer feed.Close()
		} else {
			a.activity.AddSink(hub)
		}

		gin.SetMode(a.cfg.Server.Mode)
		router := api.NewRouter(api.Dependencies{
			DB:    a.db,
			Auth:  a.auth,
			Files: a.files,
			Teams: a.teams,
			Admin: a.admin,
			Hub:   hub,
		})

		srv := &http.Server{
			Addr:              a.cfg.Server.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.L.Info("Server listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.L.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := db.AutoMigrate(a.db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		fmt.Println("Database schema is up to date")
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stored content no longer referenced by any file or version",
	Long:  "Remove stored content no longer referenced by any file or version.\nContent modified within the last hour is kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApplication(configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.files.SweepOrphans(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d orphaned object(s)\n", removed)
		return nil
	},
}

var (
	adminEmail    string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account or promote an existing user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if adminEmail == "" {
			return errors.New("--email is required")
		}

		a, err := newApplication(configPath)
		if err != nil {
			return err
		}
		defer a.Close()

		// 已存在的用户只提升权限，不需要密码
		password := adminPassword
		existing, err := a.users.FindByEmail(cmd.Context(), strings.ToLower(strings.TrimSpace(adminEmail)))
		if err != nil {
			return fmt.Errorf("looking up user: %w", err)
		}
		if password == "" && existing == nil {
			if password, err = promptPassword("Password"); err != nil {
				return err
			}
		}

		user, created, err := a.auth.EnsureAdmin(cmd.Context(), service.Credentials{Email: adminEmail, Password: password})
		if err != nil {
			return err
		}
		if created {
			fmt.Printf("Created administrator %s (id %d)\n", user.Email, user.ID)
		} else {
			fmt.Printf("Promoted %s (id %d) to administrator\n", user.Email, user.ID)
		}
		return nil
	},
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		for {
			fmt.Fprintf(os.Stderr, "%s: ", label)
			p1b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			fmt.Fprint(os.Stderr, "Confirm password: ")
			p2b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", err
			}
			p1 := strings.TrimSpace(string(p1b))
			if p1 == "" {
				fmt.Fprintln(os.Stderr, "password cannot be empty")
				continue
			}
			if p1 != strings.TrimSpace(string(p2b)) {
				fmt.Fprintln(os.Stderr, "passwords do not match")
				continue
			}
			return p1, nil
		}
	}

	// 非交互输入，读取第一行
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "administrator email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "password (prompted when omitted)")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, createAdminCmd)
}
