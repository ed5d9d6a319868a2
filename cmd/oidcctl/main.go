package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/hellojohn-oidc/internal/config"
	"github.com/dropDatabas3/hellojohn-oidc/internal/domain/repository"
	"github.com/dropDatabas3/hellojohn-oidc/internal/observability/logger"
	"github.com/dropDatabas3/hellojohn-oidc/internal/provision"
	"github.com/dropDatabas3/hellojohn-oidc/internal/security/password"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store"
	"github.com/dropDatabas3/hellojohn-oidc/internal/store/pg"
	"github.com/dropDatabas3/hellojohn-oidc/internal/util/atomicwrite"
	migrations "github.com/dropDatabas3/hellojohn-oidc/migrations/postgres"
)

func main() {
	_ = godotenv.Load(".env")

	if err := newCLI(os.Stdout).rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	out        io.Writer

	// openStore es reemplazable en tests.
	openStore func(ctx context.Context, cfg *config.Config) (repository.Store, error)
}

func newCLI(out io.Writer) *cli {
	return &cli{
		configPath: strings.TrimSpace(os.Getenv("CONFIG_PATH")),
		out:        out,
		openStore:  openStore,
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "oidcctl",
		Short:         "Provisioning del provider OIDC (clients, usuarios, migraciones)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, "config", c.configPath, "Path to YAML config (env CONFIG_PATH)")

	root.AddCommand(c.createClientCmd(), c.createUserCmd(), c.migrateCmd())
	return root
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	return store.Open(ctx, store.Config{
		Driver:          cfg.Storage.Driver,
		DSN:             cfg.Storage.DSN,
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: config.Dur(cfg.Storage.Postgres.ConnMaxLifetime),
		AutoMigrate:     cfg.Storage.AutoMigrate,
	})
}

// withStore carga config, inicializa el logger y abre el store para fn.
func (c *cli) withStore(cmd *cobra.Command, fn func(ctx context.Context, st repository.Store) error) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "oidcctl", Version: cfg.App.Version})
	defer func() { _ = logger.Sync() }()

	ctx := logger.ToContext(cmd.Context(), logger.L())
	st, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(ctx, st)
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

func (c *cli) createClientCmd() *cobra.Command {
	var (
		in      provision.ClientInput
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "create-client <url> <redirect_uri> <confidential|public>",
		Short: "Crea un client OAuth2 (o lo actualiza si el client_id ya existe) e imprime su JSON",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.URL, in.RedirectURI, in.Type = args[0], args[1], args[2]
			return c.withStore(cmd, func(ctx context.Context, st repository.Store) error {
				res, err := provision.New(st, password.Default).CreateClient(ctx, in)
				if err != nil {
					return err
				}
				if outFile != "" {
					b, err := json.MarshalIndent(res, "", "    ")
					if err != nil {
						return err
					}
					if err := atomicwrite.WriteFile(outFile, append(b, '\n'), 0o600); err != nil {
						return err
					}
				}
				return c.printJSON(res)
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.Username, "username", "u", "", "Username del usuario dueño del client")
	f.StringVarP(&in.Name, "client_name", "n", "", "Nombre del client")
	f.StringVarP(&in.ClientID, "client_id", "i", "", "client_id a asignar (default: generado)")
	f.StringVarP(&in.ClientSecret, "client_secret", "s", "", "client_secret a asignar (default: generado)")
	f.BoolVarP(&in.Trusted, "trusted", "t", false, "Marca el client como trusted (salta el consentimiento)")
	f.StringVar(&in.LogoutURI, "logout_uri", "", "URI de logout del client")
	f.StringVar(&outFile, "out", "", "Además escribe el JSON en este archivo (0600)")
	return cmd
}

func (c *cli) createUserCmd() *cobra.Command {
	var in provision.UserInput
	cmd := &cobra.Command{
		Use:   "create-user <username>",
		Short: "Crea un usuario con password argon2id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Username = args[0]
			if in.Password == "" {
				in.Password = os.Getenv("OIDCCTL_PASSWORD")
			}
			return c.withStore(cmd, func(ctx context.Context, st repository.Store) error {
				u, err := provision.New(st, password.Default).CreateUser(ctx, in)
				if err != nil {
					return err
				}
				return c.printJSON(map[string]any{
					"id":        u.ID,
					"username":  u.Username,
					"email":     u.Email,
					"is_active": u.IsActive,
				})
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.Email, "email", "e", "", "Email")
	f.StringVar(&in.FirstName, "first_name", "", "Nombre")
	f.StringVar(&in.LastName, "last_name", "", "Apellido")
	f.StringVarP(&in.Password, "password", "p", "", "Password (env OIDCCTL_PASSWORD)")
	f.BoolVar(&in.Inactive, "inactive", false, "Crea el usuario deshabilitado")
	return cmd
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones SQL pendientes (solo storage postgres)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withStore(cmd, func(ctx context.Context, st repository.Store) error {
				ps, ok := st.(*pg.Store)
				if !ok {
					fmt.Fprintln(c.out, "storage sin migraciones (driver memory)")
					return nil
				}
				res, err := pg.Migrate(ctx, ps.Pool(), migrations.FS, migrations.Dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "applied=%v skipped=%v took=%s\n", res.Applied, res.Skipped, res.Duration)
				return nil
			})
		},
	}
}
