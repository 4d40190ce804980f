package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/lingopad/api/internal/auth"
	"github.com/lingopad/api/internal/cache"
	"github.com/lingopad/api/internal/config"
	"github.com/lingopad/api/internal/database"
	"github.com/lingopad/api/internal/logger"
	"github.com/lingopad/api/internal/model"
	"github.com/lingopad/api/internal/practice"
	"github.com/lingopad/api/internal/seed"
	"github.com/lingopad/api/internal/validator"
)

const defaultSeedFile = "data/dictionaries.yaml"

var (
	dictFile     string
	dictWordList string

	userEmail string
	userName  string

	tokenUserID int64
	tokenTTL    time.Duration
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "seed",
		Short:        "Seed dictionaries and users for typing practice",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newDictionariesCmd())
	rootCmd.AddCommand(newUsersCmd())
	rootCmd.AddCommand(newTokenCmd())
	return rootCmd
}

func newDictionariesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionaries",
		Short: "Insert dictionaries and words from a YAML file",
		RunE:  runDictionaries,
	}
	cmd.Flags().StringVar(&dictFile, "file", defaultSeedFile, "path to the dictionary YAML file")
	cmd.Flags().StringVar(&dictWordList, "wordlist", "", "optional allow-list of headwords, one per line")
	return cmd
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Ensure a user exists",
		RunE:  runUsers,
	}
	cmd.Flags().StringVar(&userEmail, "email", "", "user email")
	cmd.Flags().StringVar(&userName, "name", "", "display name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development access token for a user",
		RunE:  runToken,
	}
	cmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "user id")
	cmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

func runDictionaries(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	f, err := seed.LoadFile(dictFile)
	if err != nil {
		return err
	}
	v, err := validator.NewHeadwordValidator(dictWordList)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var inv seed.Invalidator
	if rc, err := cache.NewRedisCache(ctx, cfg.RedisURL); err != nil {
		log.Warn("redis unavailable, word cache not invalidated", "error", err)
	} else {
		defer rc.Close()
		inv = rc
	}

	res, err := seed.NewSeeder(db, v, inv, log).Seed(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "dictionaries=%d inserted=%d skipped=%d invalid=%d\n",
		res.Dictionaries, res.Inserted, res.Skipped, res.Invalid)
	return nil
}

func runUsers(cmd *cobra.Command, _ []string) error {
	_, log, db, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	name := userName
	if name == "" {
		name = userEmail
	}
	u, err := practice.EnsureUser(cmd.Context(), db, userEmail, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user id=%d email=%s\n", u.ID, u.Email)
	return nil
}

func runToken(cmd *cobra.Command, _ []string) error {
	cfg, log, db, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	var u model.User
	if err := db.WithContext(cmd.Context()).First(&u, tokenUserID).Error; err != nil {
		return fmt.Errorf("load user %d: %w", tokenUserID, err)
	}
	tok, err := auth.GenerateAccessToken(&u, cfg.JWTSecret, tokenTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}

func setup() (*config.Config, *logger.Logger, *gorm.DB, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return cfg, log, db, nil
}
