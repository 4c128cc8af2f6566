package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
	"github.com/babylonlabs-io/tip-ledger/internal/ledger"
)

var errDiverged = errors.New("persisted state diverges from the event log")

// ReconcileCmd replays the full event log from genesis and compares the
// result with the persisted statistics.
// Usage: ./tip-ledger reconcile --config config.yml
func ReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check the persisted ledger state against its event log",
		Args:  cobra.ExactArgs(0),
		Run:   reconcile,
	}

	return cmd
}

func reconcile(cmd *cobra.Command, args []string) {
	err := reconcileE(cmd, args)
	// because of current architecture we need to stop execution of the program
	// otherwise existing main logic will be called
	if err != nil {
		log.Err(err).Msg("Reconciliation failed")
		os.Exit(1)
	}

	os.Exit(0)
}

func reconcileE(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	dbClient, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	return checkStore(ctx, dbClient, cmd.OutOrStdout())
}

// checkStore reports every divergence between the persisted state and its
// event log to w. It returns errDiverged when anything was reported.
func checkStore(ctx context.Context, store db.DbInterface, w io.Writer) error {
	state, err := store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}

	// a limit of 0 lists the whole log
	events, err := store.ListEvents(ctx, 1, 0)
	if err != nil {
		return fmt.Errorf("failed to list ledger events: %w", err)
	}

	mismatches, err := ledger.Reconcile(state, events)
	if err != nil {
		return fmt.Errorf("failed to replay %d events: %w", len(events), err)
	}

	violations := ledger.CheckInvariants(state)
	for _, violation := range violations {
		fmt.Fprintf(w, "Invariant violated: %v\n", violation)
	}
	for _, m := range mismatches {
		fmt.Fprintf(w, "Mismatch: %s\n", m)
	}

	if len(mismatches) > 0 || len(violations) > 0 {
		return fmt.Errorf("%w: %d mismatches, %d invariant violations", errDiverged, len(mismatches), len(violations))
	}

	fmt.Fprintf(w, "Ledger state matches %d events\n", len(events))
	return nil
}
