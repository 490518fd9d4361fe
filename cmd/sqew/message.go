package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sqewdb/sqew/internal/engine"
)

func newMessageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "message",
		Short: "Message commands",
	}
	cmd.AddCommand(
		newMessageEnqueueCommand(),
		newMessagePollCommand(),
		newMessageAckCommand(),
		newMessageNackCommand(),
		newMessageRemoveCommand(),
		newMessagePeekCommand(),
		newMessagePeekIDCommand(),
		newMessageExtendLeaseCommand(),
	)
	return cmd
}

func newMessageEnqueueCommand() *cobra.Command {
	var priority, delayMs, ttlMs int64
	var hasTTL bool
	var idempotencyKey string
	cmd := &cobra.Command{
		Use:   "enqueue <queue> <payload-json>",
		Short: "Enqueue a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				res, err := a.engine.Enqueue(cmd.Context(), engine.EnqueueInput{
					QueueName:      args[0],
					Payload:        []byte(args[1]),
					Priority:       priority,
					DelayMs:        delayMs,
					TTLMs:          ttlMs,
					HasTTL:         hasTTL,
					IdempotencyKey: idempotencyKey,
				})
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().Int64Var(&priority, "priority", 0, "Priority, higher leases first")
	cmd.Flags().Int64Var(&delayMs, "delay-ms", 0, "Delay before the message becomes ready")
	cmd.Flags().Int64Var(&ttlMs, "ttl-ms", 0, "Time-to-live in ms before expiry")
	cmd.Flags().BoolVar(&hasTTL, "with-ttl", false, "Apply --ttl-ms (0 is a valid TTL)")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "Dedup key, scoped to the queue")
	return cmd
}

func newMessagePollCommand() *cobra.Command {
	var batch int
	var visibilityMs, waitMs int64
	var consumerTag string
	cmd := &cobra.Command{
		Use:   "poll <queue>",
		Short: "Lease a batch of ready messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(a *app) error {
				res, err := a.engine.Lease(cmd.Context(), engine.LeaseInput{
					QueueName:            args[0],
					Batch:                batch,
					VisibilityOverrideMs: visibilityMs,
					ConsumerTag:          consumerTag,
					WaitMs:               waitMs,
				})
				if err != nil {
					return err
				}
				return printJSON(res.Messages)
			})
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 10, "Maximum messages to lease")
	cmd.Flags().Int64Var(&visibilityMs, "visibility-ms", 0, "Override the queue's default visibility timeout")
	cmd.Flags().Int64Var(&waitMs, "wait-ms", 0, "Long-poll bound in ms; 0 disables long-polling")
	cmd.Flags().StringVar(&consumerTag, "consumer", "", "Opaque consumer identifier recorded on the lease")
	return cmd
}

func newMessageAckCommand() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "ack <queue> <id>",
		Short: "Acknowledge a leased message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[1], err)
			}
			return withApp(func(a *app) error {
				res, err := a.engine.Ack(cmd.Context(), args[0], []engine.AckItem{{ID: id, Token: token}})
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Lease token returned by poll")
	return cmd
}

func newMessageNackCommand() *cobra.Command {
	var token string
	var delayMs int64
	cmd := &cobra.Command{
		Use:   "nack <queue> <id>",
		Short: "Reject a leased message, rescheduling it with backoff",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[1], err)
			}
			return withApp(func(a *app) error {
				res, err := a.engine.Nack(cmd.Context(), args[0], []engine.NackItem{{ID: id, Token: token}}, delayMs)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Lease token returned by poll")
	cmd.Flags().Int64Var(&delayMs, "delay-ms", 0, "Minimum delay before retry; backoff may impose a longer one")
	return cmd
}

func newMessageRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <queue> <id>",
		Short: "Unconditionally delete a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[1], err)
			}
			return withApp(func(a *app) error {
				return a.engine.Remove(cmd.Context(), args[0], id)
			})
		},
	}
}

func newMessagePeekCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "peek <queue>",
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

func newMessagePeekIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "peek-id <queue> <id>",
		Short: "Show one message regardless of lease state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[1], err)
			}
			return withApp(func(a *app) error {
				m, err := a.engine.Get(cmd.Context(), args[0], id)
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
}

func newMessageExtendLeaseCommand() *cobra.Command {
	var token string
	var extendMs int64
	cmd := &cobra.Command{
		Use:   "extend-lease <queue> <id>",
		Short: "Extend a held lease",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q: %w", args[1], err)
			}
			return withApp(func(a *app) error {
				newExpiry, err := a.engine.ExtendLease(cmd.Context(), args[0], id, token, extendMs)
				if err != nil {
					return err
				}
				return printJSON(map[string]int64{"lease_expires_at": newExpiry})
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Lease token returned by poll")
	cmd.Flags().Int64Var(&extendMs, "extend-ms", 0, "Additional time to extend the lease by")
	return cmd
}
