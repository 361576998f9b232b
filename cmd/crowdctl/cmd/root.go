// Package cmd implementa crowdctl, la CLI de diagnóstico contra Crowd.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dropDatabas3/crowdauth/internal/auth"
	"github.com/dropDatabas3/crowdauth/internal/config"
	"github.com/dropDatabas3/crowdauth/internal/http/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/thejerf/abtime"
)

// options son los flags persistentes compartidos por los subcomandos.
type options struct {
	configPath string
	timeout    time.Duration
}

// NewRootCmd arma el árbol de comandos de crowdctl.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "crowdctl",
		Short: "crowdctl - consultas a Crowd y utilidades de remember-me",
		Long: `crowdctl habla con el REST de Crowd usando la misma configuración que el
servicio crowdauth. Sirve para revisar usuarios, grupos, roles y sesiones SSO, y
para firmar o validar cookies de remember-me.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			if opts.configPath == "" {
				opts.configPath = os.Getenv("CONFIG_PATH")
			}
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (env CONFIG_PATH)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "timeout for remote calls")

	root.AddCommand(
		newUserCmd(opts),
		newGroupsCmd(opts),
		newMembersCmd(opts),
		newRoleMembersCmd(opts),
		newSessionCmd(opts),
		newCookieCmd(opts),
	)
	return root
}

// Execute corre la CLI y sale con 1 si falla.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) config() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (o *options) client() (auth.IdentityClient, *config.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, nil, err
	}
	return server.NewCrowdClient(cfg), cfg, nil
}

func (o *options) engine() (*auth.Engine, error) {
	cl, cfg, err := o.client()
	if err != nil {
		return nil, err
	}
	return server.NewEngine(cfg, cl, abtime.NewRealTime()), nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
