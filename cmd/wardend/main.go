package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/warden-mod/warden/moderation/engine"
	"github.com/warden-mod/warden/moderation/rulestore"
	"github.com/warden-mod/warden/moderation/store"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "wardend",
		Usage:   "content moderation pipeline daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admin HTTP API",
			Value:   ":3999",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics",
			Value:   ":3998",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "sqlite:// or postgres:// connection string; empty runs in-memory",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection for the shared rule store; empty keeps rules in-memory",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "webhook-url",
			Usage:   "incoming-webhook URL for notifications",
			EnvVars: []string{"WARDEN_WEBHOOK_URL"},
		},
		&cli.StringSliceFlag{
			Name:    "moderator",
			Usage:   "moderator id for the assignment pool (repeatable)",
			EnvVars: []string{"WARDEN_MODERATORS"},
		},
		&cli.IntFlag{
			Name:    "escalation-threshold",
			Usage:   "duplicate-report count that forces severity high",
			Value:   engine.DefaultEscalationThreshold,
			EnvVars: []string{"WARDEN_ESCALATION_THRESHOLD"},
		},
		&cli.BoolFlag{
			Name:    "auto-moderation",
			Usage:   "enable the queue-draining auto-moderation loop",
			EnvVars: []string{"WARDEN_AUTO_MODERATION"},
		},
		&cli.BoolFlag{
			Name:    "auto-assign",
			Usage:   "assign new queue items to moderators on intake",
			EnvVars: []string{"WARDEN_AUTO_ASSIGN"},
		},
		&cli.BoolFlag{
			Name:    "no-human-review",
			Usage:   "record decisive analysis actions without queueing for review",
			EnvVars: []string{"WARDEN_NO_HUMAN_REVIEW"},
		},
		&cli.DurationFlag{
			Name:    "analysis-timeout",
			Value:   5 * time.Second,
			EnvVars: []string{"WARDEN_ANALYSIS_TIMEOUT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		st, err := setupStore(cctx.String("database-url"))
		if err != nil {
			return err
		}

		var rules rulestore.RuleStore
		if ru := cctx.String("redis-url"); ru != "" {
			rules, err = rulestore.NewRedisRuleStore(ru)
			if err != nil {
				return fmt.Errorf("connecting rule store: %w", err)
			}
		} else {
			rules = rulestore.NewMemRuleStore()
		}

		cfg := engine.Config{
			Enabled:             true,
			HumanReviewRequired: !cctx.Bool("no-human-review"),
			AutoModeration:      cctx.Bool("auto-moderation"),
			EscalationThreshold: cctx.Int("escalation-threshold"),
			AutoAssign:          cctx.Bool("auto-assign"),
			Moderators:          cctx.StringSlice("moderator"),
			AnalysisTimeout:     cctx.Duration("analysis-timeout"),
		}

		srv, err := NewServer(logger, st, rules, cfg, ServerConfig{
			WebhookURL: cctx.String("webhook-url"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		return srv.Run(cctx.Context, cctx.String("bind"))
	},
}

// setupStore opens the configured repository backend. sqlite:// and
// postgres:// URLs get a gorm store; an empty URL runs fully in-memory.
func setupStore(dburl string) (store.Store, error) {
	switch {
	case dburl == "":
		return store.NewMemstore(), nil
	case strings.HasPrefix(dburl, "sqlite://"):
		path := strings.TrimPrefix(dburl, "sqlite://")
		if dir := dirOf(path); dir != "" {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, err
			}
		}
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return store.NewGormstore(db)
	case strings.HasPrefix(dburl, "postgres://"):
		db, err := gorm.Open(postgres.Open(dburl), &gorm.Config{})
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return store.NewGormstore(db)
	default:
		return nil, fmt.Errorf("unsupported database-url scheme: %s", dburl)
	}
}

func dirOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return ""
}
