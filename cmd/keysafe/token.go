package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/keysafehq/keysafe/internal/audit"
	"github.com/keysafehq/keysafe/internal/token"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored access/refresh token pair",
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored token container",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		ts := token.NewStorage(e.mgr, token.WithReport(audit.Reporter(e.audit)))
		c, err := ts.Get()
		if err != nil {
			return err
		}
		if c == nil {
			fmt.Println("No token stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ACCESS TOKEN\t%s\n", c.AccessToken)
		fmt.Fprintf(w, "REFRESH TOKEN\t%s\n", c.RefreshToken)
		if !c.ExpiresAt.IsZero() {
			fmt.Fprintf(w, "EXPIRES\t%s\n", c.ExpiresAt.Format(time.RFC3339))
		}
		status := "valid"
		if !c.Valid(time.Now()) {
			status = "expired"
		}
		fmt.Fprintf(w, "STATUS\t%s\n", status)
		w.Flush()
		return nil
	},
}

var (
	tokenAccess    string
	tokenRefresh   string
	tokenExpiresIn time.Duration
)

var tokenSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store a token container",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		access := tokenAccess
		if access == "" {
			access, err = readSecretValue()
			if err != nil {
				return err
			}
		}

		c := &token.Container{
			AccessToken:  access,
			RefreshToken: tokenRefresh,
		}
		if tokenExpiresIn > 0 {
			c.ExpiresAt = time.Now().Add(tokenExpiresIn)
		}

		ts := token.NewStorage(e.mgr)
		if err := ts.Save(c); err != nil {
			return err
		}
		e.audit.Log(audit.Entry{Action: audit.ActionItemWrite, Key: token.DefaultKey})

		if e.mgr.IsPending(token.DefaultKey) {
			fmt.Fprintln(os.Stderr, "secure store unavailable; token write deferred")
		} else {
			fmt.Println("Token stored")
		}
		return nil
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored token container",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		ts := token.NewStorage(e.mgr)
		if err := ts.Clear(); err != nil {
			return err
		}
		e.audit.Log(audit.Entry{Action: audit.ActionItemDelete, Key: token.DefaultKey})
		fmt.Println("Token cleared")
		return nil
	},
}

func init() {
	tokenSetCmd.Flags().StringVar(&tokenAccess, "access", "", "Access token (prompted if omitted)")
	tokenSetCmd.Flags().StringVar(&tokenRefresh, "refresh", "", "Refresh token")
	tokenSetCmd.Flags().DurationVar(&tokenExpiresIn, "expires-in", 0, "Access token lifetime (e.g. 1h)")
	tokenCmd.AddCommand(tokenShowCmd)
	tokenCmd.AddCommand(tokenSetCmd)
	tokenCmd.AddCommand(tokenClearCmd)
	rootCmd.AddCommand(tokenCmd)
}
