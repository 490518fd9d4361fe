package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sqewdb/sqew/internal/apperr"
	"github.com/sqewdb/sqew/internal/config"
)

func newQueueCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Queue management commands",
	}
	cmd.AddCommand(
		newQueueListCommand(),
		newQueueAddCommand(),
		newQueueShowCommand(),
		newQueueRmCommand(),
		newQueuePurgeCommand(),
		newQueuePeekCommand(),
		newQueueCompactCommand(),
	)
	return cmd
}

func newQueueListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				queues, err := a.registry.List(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(queues)
			})
		},
	}
}

func newQueueAddCommand() *cobra.Command {
	var maxAttempts, visibilityMs int64
	var dlq string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a new queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				q, err := a.registry.Create(cmd.Context(), args[0], maxAttempts, visibilityMs, dlq)
				if err != nil {
					return err
				}
				return printJSON(q)
			})
		},
	}
	cmd.Flags().Int64Var(&maxAttempts, "max-attempts", config.DefaultMaxAttempts, "Maximum delivery attempts")
	cmd.Flags().Int64Var(&visibilityMs, "visibility-ms", config.DefaultVisibilityMs, "Default visibility timeout in ms")
	cmd.Flags().StringVar(&dlq, "dlq", "", "Existing queue name to route over-attempt messages to")
	return cmd
}

func newQueueShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show a queue's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				q, err := a.registry.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(q)
			})
		},
	}
}

func newQueueRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				return a.registry.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func newQueuePurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <name>",
		Short: "Delete all messages in a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				n, err := a.registry.Purge(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("deleted: %d\n", n)
				return nil
			})
		},
	}
}

func newQueuePeekCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "peek <name>",
		Short: "Peek ready messages without leasing them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				msgs, err := a.engine.Peek(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return printJSON(msgs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 1, "Number of messages to peek")
	return cmd
}

func newQueueCompactCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compact <name>",
		Short: "Run VACUUM against the queue's database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				return a.registry.Compact(cmd.Context(), args[0])
			})
		},
	}
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <name>",
		Short: "Show queue statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				st, err := a.registry.Stats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(st)
			})
		},
	}
}

// withApp opens the store for the duration of one CLI invocation and maps
// a typed apperr.Error to an exit code: 2 for invalid_arg/usage, 1 for
// anything else.
func withApp(fn func(a *app) error) error {
	cfg := config.FromEnv()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(a); err != nil {
		if apperr.Is(err, apperr.KindInvalidArg) {
			exitWithErr(err, true)
		}
		exitWithErr(err, false)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
