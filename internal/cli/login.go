package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"staybook/internal/auth"
	"staybook/internal/domain"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store a token pair",
		Long:  "Exchanges email and password for an access/refresh token pair and stores it next to the config file. The password is read from stdin when --password is omitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (default: last used)")
	cmd.Flags().StringVar(&password, "password", "", "account password")

	return cmd
}

func runLogin(cmd *cobra.Command, email, password string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}
	if email == "" {
		email = cfg.Email
	}
	if email == "" {
		return errors.New("no email provided (use --email)")
	}
	if password == "" {
		fmt.Fprint(out, "Password: ")
		if password, err = readLine(cmd.InOrStdin()); err != nil {
			return fmt.Errorf("reading password: %w", err)
		}
	}

	c, err := newClient(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	creds, err := c.api.Login(ctx, email, password)
	if errors.Is(err, domain.ErrUnauthorized) {
		return errors.New("invalid email or password")
	}
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := c.session.Login(ctx, creds); err != nil {
		return err
	}

	cfg.Email = email
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "✓ Logged in as %s.\n", auth.Subject(creds.Access))
	return nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
