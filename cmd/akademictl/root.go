package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/akademi-id/akademi/internal/audit"
	"github.com/akademi-id/akademi/internal/guard"
)

// defaultRetention keeps roughly two years of audit history.
const defaultRetention = 730 * 24 * time.Hour

func newRootCmd(b backends) *cobra.Command {
	root := &cobra.Command{
		Use:           "akademictl",
		Short:         "Operator tasks for the Akademi site",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newUserCmd(b), newAuditCmd(b, time.Now), newJobsCmd(b))
	return root
}

func newUserCmd(b backends) *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage accounts"}

	var name, email, password, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account with any role, typically the first super admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, ok := guard.ParseRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q", role)
			}
			svc, err := b.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			id, err := svc.Provision(cmd.Context(), name, email, password, parsed)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s account %d for %s\n", parsed, id, strings.ToLower(strings.TrimSpace(email)))
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password, 8 to 72 characters")
	create.Flags().StringVar(&role, "role", guard.RoleSuperAdmin.String(), "STUDENT, INSTRUCTOR, ADMIN or SUPER_ADMIN")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func newAuditCmd(b backends, now func() time.Time) *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Inspect and prune the audit log"}

	var olderThan time.Duration
	var yes bool
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit records older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to prune without --yes")
			}
			store, err := b.AuditStore(cmd.Context())
			if err != nil {
				return err
			}
			n, err := audit.PruneOlderThan(cmd.Context(), store, olderThan, now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d audit records older than %s\n", n, now().Add(-olderThan).Format(time.DateOnly))
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", defaultRetention, "retention window")
	prune.Flags().BoolVar(&yes, "yes", false, "confirm deletion")

	var entity, entityID string
	var limit int
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print the newest audit records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityID != "" && entity == "" {
				return errors.New("--id requires --entity")
			}
			store, err := b.AuditStore(cmd.Context())
			if err != nil {
				return err
			}
			var records []audit.Record
			if entity != "" {
				records, err = store.ForEntity(cmd.Context(), entity, entityID, limit)
			} else {
				records, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tWHO\tACTION\tENTITY")
			for _, rec := range records {
				who := rec.UserName
				if who == "" {
					who = "#" + rec.UserID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s/%s\n", rec.CreatedAt.Format(time.DateTime), who, rec.Action, rec.Entity, rec.EntityID)
			}
			return tw.Flush()
		},
	}
	tail.Flags().StringVar(&entity, "entity", "", "only records for this entity type, e.g. course")
	tail.Flags().StringVar(&entityID, "id", "", "only records for this entity id")
	tail.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")

	cmd.AddCommand(prune, tail)
	return cmd
}

func newJobsCmd(b backends) *cobra.Command {
	cmd := &cobra.Command{Use: "jobs", Short: "Inspect the background queue"}

	trigger := &cobra.Command{
		Use:   "trigger [job]",
		Short: "Enqueue a job now, e.g. admin:digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := b.Queue()
			if err != nil {
				return err
			}
			id, err := q.Trigger(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s as %s\n", args[0], id)
			return nil
		},
	}
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := b.Queue()
			if err != nil {
				return err
			}
			s, err := q.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
			return nil
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}
