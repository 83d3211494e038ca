package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/keysafehq/keysafe/internal/audit"
	"github.com/keysafehq/keysafe/internal/keychain"
	"github.com/keysafehq/keysafe/internal/spool"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage raw items in the secure store",
}

var setWait time.Duration

var secretSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store an item",
	Long:  "Store an item. If value is omitted, reads from stdin (useful for piping).",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()
		key := args[0]

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			value, err = readSecretValue()
			if err != nil {
				return err
			}
		}

		if err := e.mgr.Store(key, []byte(value)); err != nil {
			return err
		}
		e.audit.Log(audit.Entry{Action: audit.ActionItemWrite, Key: key})

		// A deferred write only lives in this process. Give the store a
		// short window to come back, then park the payload in the spool
		// for the flush agent.
		if e.mgr.IsPending(key) {
			deadline := time.Now().Add(setWait)
			for e.mgr.IsPending(key) && time.Now().Before(deadline) {
				time.Sleep(time.Second)
				e.mgr.Flush()
			}
		}
		if e.mgr.IsPending(key) {
			sp, err := spool.Open(spool.DefaultPath())
			if err != nil {
				return fmt.Errorf("secure store unavailable and spool failed: %w", err)
			}
			if err := sp.Put(key, []byte(value)); err != nil {
				return fmt.Errorf("secure store unavailable and spool failed: %w", err)
			}
			e.audit.Log(audit.Entry{Action: audit.ActionWriteDeferred, Key: key})
			fmt.Fprintf(os.Stderr, "secure store unavailable; %q spooled for the flush agent\n", key)
			return nil
		}

		fmt.Printf("Item %q stored\n", key)
		return nil
	},
}

var secretGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Retrieve an item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		data, err := e.mgr.Retrieve(args[0])
		if err != nil {
			return err
		}
		if data == nil {
			return fmt.Errorf("no item for %q", args[0])
		}
		e.audit.Log(audit.Entry{Action: audit.ActionItemRead, Key: args[0]})
		fmt.Println(string(data))
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:     "delete <key>",
	Short:   "Remove an item",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := e.mgr.Delete(args[0]); err != nil {
			return err
		}
		// Drop any spooled write for the key too; a pending write for a
		// deleted key is moot.
		if sp, err := spool.Open(spool.DefaultPath()); err == nil {
			sp.Remove(args[0])
		}
		e.audit.Log(audit.Entry{Action: audit.ActionItemDelete, Key: args[0]})
		fmt.Printf("Item %q deleted\n", args[0])
		return nil
	},
}

var secretListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List all items",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := newEnv()
		if err != nil {
			return err
		}
		defer cleanup()

		attrs, err := e.cfg.Attributes()
		if err != nil {
			return err
		}
		lister, ok := any(e.store).(keychain.Lister)
		if !ok {
			return fmt.Errorf("the %s backend cannot enumerate items", attrs.Service)
		}
		keys, err := lister.List(attrs)
		if err != nil {
			return err
		}

		if len(keys) == 0 {
			fmt.Println("No items stored")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY")
		for _, k := range keys {
			fmt.Fprintln(w, k)
		}
		w.Flush()
		return nil
	},
}

// readSecretValue reads an item value from the terminal (hidden) or stdin.
func readSecretValue() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Enter value: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading value: %w", err)
		}
		fmt.Println()
		return string(b), nil
	}
	b, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func init() {
	secretSetCmd.Flags().DurationVar(&setWait, "wait", 10*time.Second, "How long to retry a deferred write before spooling it")
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretGetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	secretCmd.AddCommand(secretListCmd)
	rootCmd.AddCommand(secretCmd)
}
