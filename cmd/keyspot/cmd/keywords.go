package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/corey/keyspot/internal/adapters/bbolt"
	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/app"
	"github.com/corey/keyspot/internal/domain/keywords"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Manage keyword sets in the local store",
}

var keywordsImportCmd = &cobra.Command{
	Use:   "import <set> <file>",
	Short: "Store the keywords of a .txt or .yaml file as a named set",
	Args:  cobra.ExactArgs(2),
	RunE:  runKeywordsImport,
}

var keywordsListCmd = &cobra.Command{
	Use:   "list [set]",
	Short: "List stored sets, or the keywords of one set",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runKeywordsList,
}

var keywordsRmCmd = &cobra.Command{
	Use:   "rm <set>",
	Short: "Delete a stored set",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeywordsRm,
}

func init() {
	keywordsCmd.AddCommand(keywordsImportCmd)
	keywordsCmd.AddCommand(keywordsListCmd)
	keywordsCmd.AddCommand(keywordsRmCmd)
}

// dbPath returns the configured bbolt file.
func dbPath() string {
	if p := viper.GetString("db.path"); p != "" {
		return p
	}
	return app.NewPaths(homeDir()).DB
}

// openStore opens the keyword store, turning lock timeouts into guidance.
func openStore() (*bbolt.Store, error) {
	path := dbPath()
	if err := app.NewPaths(homeDir()).EnsureDirs(); err != nil {
		return nil, err
	}
	store, err := bbolt.NewStore(path)
	if err != nil {
		if isDBLockError(err) {
			return nil, fmt.Errorf("%s", diagnoseDBLock(socketPath()))
		}
		return nil, err
	}
	return store, nil
}

func runKeywordsImport(cmd *cobra.Command, args []string) error {
	set, file := args[0], args[1]

	format, err := keywords.FormatFor(file)
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	raw, err := keywords.Parse(f, format)
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	kws := keywords.Normalize(raw, viper.GetBool("keywords.fold_case"))

	store, err := openStore()
	if err != nil {
		return err
	}
	err = store.SaveSet(set, kws)
	store.Close()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚡ stored %d keywords as %s%s%s\n", len(kws), colorCyan, set, colorReset)

	// A daemon serving this set picks up the change right away.
	client := socket.NewClient(socketPath())
	if !client.Ping() {
		return nil
	}
	stats, err := client.Stats()
	if err != nil || stats.Source != "bbolt:"+set {
		return nil
	}
	res, err := client.Reload()
	if err != nil {
		return fmt.Errorf("daemon reload: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatReload(res))
	return nil
}

func runKeywordsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		sets, err := store.ListSets()
		if err != nil {
			return err
		}
		fmt.Fprint(out, formatSets(sets))
		return nil
	}

	kws, err := store.LoadSet(args[0])
	if err != nil {
		return err
	}
	if kws == nil {
		return fmt.Errorf("keyword set %q: %w", args[0], bbolt.ErrSetNotFound)
	}
	for _, kw := range kws {
		fmt.Fprintln(out, kw)
	}
	return nil
}

func runKeywordsRm(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteSet(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "⚡ removed %s\n", args[0])
	return nil
}
