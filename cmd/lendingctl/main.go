package main

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/bookhaven/lending-service/config"
	"github.com/bookhaven/lending-service/internal/errs"
	"github.com/bookhaven/lending-service/internal/model"
	"github.com/bookhaven/lending-service/internal/repository"
	"github.com/bookhaven/lending-service/internal/service"
	"github.com/bookhaven/lending-service/migrations"
	"github.com/bookhaven/lending-service/pkg/logger"
	"github.com/bookhaven/lending-service/pkg/postgres"
)

var sampleBooks = []model.CreateBookRequest{
	{Title: "O Senhor dos Anéis", Author: "J.R.R. Tolkien", Editor: "HarperCollins", Isbn: "978-0618640157"},
	{Title: "1984", Author: "George Orwell", Editor: "Secker & Warburg", Isbn: "978-0451524935"},
	{Title: "Dom Casmurro", Author: "Machado de Assis", Editor: "Garnier", Isbn: "978-8535910663"},
	{Title: "O Pequeno Príncipe", Author: "Antoine de Saint-Exupéry", Editor: "Reynal & Hitchcock", Isbn: "978-0156012195"},
	{Title: "Cem Anos de Solidão", Author: "Gabriel García Márquez", Editor: "Sudamericana", Isbn: "978-0060883287"},
	{Title: "Crime e Castigo", Author: "Fiódor Dostoiévski", Editor: "The Russian Messenger", Isbn: "978-0486415871"},
}

func main() {
	root := &cobra.Command{
		Use:   "lendingctl",
		Short: "Administrative tooling for the lending service",
	}
	root.AddCommand(seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// noopRecorder satisfies the audit sink for offline admin commands,
// which run without a broker.
type noopRecorder struct{}

func (noopRecorder) Record(string, string, model.ActionKind) {}

func seedCmd() *cobra.Command {
	var adminUsername string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and a starter catalogue",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			cfg := config.NewConfig(config.WithLogLevel(zapcore.WarnLevel))
			log := logger.NewLogger(cfg.Log, "lendingctl")

			ctx := context.Background()
			db, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
			if err != nil {
				return errors.Wrap(err, "db init")
			}
			defer db.Close()

			repo, err := repository.NewRepository(db, log)
			if err != nil {
				return errors.Wrap(err, "repo init")
			}
			svc := service.NewService(repo, noopRecorder{}, log)

			fmt.Printf("password for admin %q: ", adminUsername)
			password, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return errors.Wrap(err, "read password")
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			_, err = svc.CreateUser(ctx, adminUsername, model.UserCreateRequest{
				Username: adminUsername,
				FullName: "System Administrator",
				Email:    adminUsername + "@biblioteca.local",
				Password: string(password),
				Type:     model.UserTypeAdmin,
			})
			switch {
			case errors.Is(err, errs.ErrConflict):
				fmt.Printf("admin %q already exists, skipping\n", adminUsername)
			case err != nil:
				return errors.Wrap(err, "create admin")
			default:
				fmt.Printf("admin %q created\n", adminUsername)
			}

			created := 0
			for _, book := range sampleBooks {
				if _, err := svc.CreateBook(ctx, adminUsername, book); err != nil {
					if errors.Is(err, errs.ErrConflict) {
						continue
					}
					return errors.Wrapf(err, "create book %q", book.Title)
				}
				created++
			}
			fmt.Printf("%d sample books created\n", created)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminUsername, "admin", "admin", "username for the admin account")
	return cmd
}
