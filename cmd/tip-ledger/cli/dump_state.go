package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/babylonlabs-io/tip-ledger/internal/config"
	"github.com/babylonlabs-io/tip-ledger/internal/db"
)

// DumpStateCmd prints the persisted ledger state and the last stats snapshot.
// Usage: ./tip-ledger dump-state --config config.yml [--raw]
func DumpStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-state",
		Short: "Print the persisted ledger state",
		Args:  cobra.ExactArgs(0),
		Run:   dumpState,
	}

	cmd.Flags().Bool("raw", false, "Dump the Go values instead of JSON")

	return cmd
}

func dumpState(cmd *cobra.Command, args []string) {
	err := dumpStateE(cmd, args)
	// because of current architecture we need to stop execution of the program
	// otherwise existing main logic will be called
	if err != nil {
		log.Err(err).Msg("Failed to dump ledger state")
		os.Exit(1)
	}

	os.Exit(0)
}

func dumpStateE(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	dbClient, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	state, err := dbClient.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("failed to load ledger state: %w", err)
	}

	stats, err := dbClient.GetLedgerStats(ctx)
	if err != nil && !db.IsNotFoundError(err) {
		return fmt.Errorf("failed to load ledger stats: %w", err)
	}

	if raw {
		spew.Dump(state)
		if stats != nil {
			spew.Dump(stats)
		}
		return nil
	}

	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if stats == nil {
		fmt.Println("No stats snapshot stored yet")
		return nil
	}
	out, err = json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
