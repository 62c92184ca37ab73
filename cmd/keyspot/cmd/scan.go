package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/corey/keyspot/internal/adapters/socket"
	"github.com/corey/keyspot/internal/app"
)

var (
	scanFile    string
	scanMatches bool
	scanJSON    bool
	scanLocal   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [text...]",
	Short: "Find keywords in text",
	Long: "Scans the arguments, --file, or stdin for every configured keyword.\n" +
		"Prints the distinct keywords found, tab separated. Uses the running daemon\n" +
		"unless --local or a keyword flag (--keywords, --source, --set, --engine,\n" +
		"--fold-case) is given, or no daemon answers.",
	RunE: runScan,
}

var fragmentsCmd = &cobra.Command{
	Use:   "fragments [text...]",
	Short: "Extract alphanumeric fragments and match them against the keyword set",
	RunE:  runFragments,
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, fragmentsCmd} {
		c.Flags().StringVarP(&scanFile, "file", "f", "", "read text from file")
		c.Flags().BoolVar(&scanJSON, "json", false, "print the raw JSON result")
		c.Flags().BoolVar(&scanLocal, "local", false, "scan in-process even if a daemon is running")
	}
	scanCmd.Flags().BoolVarP(&scanMatches, "matches", "m", false, "print every match with its offsets")
}

// readInput returns the text to scan: --file, then args, then stdin.
func readInput(cmd *cobra.Command, args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// keywordFlags select a keyword set or matcher. A daemon serves its own set,
// so any of them given on the command line forces an in-process scan.
var keywordFlags = []string{"keywords", "source", "set", "engine", "fold-case"}

// keywordFlagSet returns the first keyword flag given on the command line.
func keywordFlagSet() (string, bool) {
	for _, name := range keywordFlags {
		if rootCmd.PersistentFlags().Changed(name) {
			return name, true
		}
	}
	return "", false
}

// withService runs fn against the daemon when one answers, otherwise
// against an in-process App built from the current configuration.
func withService(local bool, fn func(socket.Service) error) error {
	if name, ok := keywordFlagSet(); ok && !local {
		logrus.WithField("flag", "--"+name).Debug("keyword flag given, scanning in-process")
		local = true
	}
	if !local {
		client := socket.NewClient(socketPath())
		if client.Ping() {
			return fn(clientService{client})
		}
	}

	a, err := app.New(context.Background(), oneShotConfig())
	if err != nil {
		if isDBLockError(err) {
			return fmt.Errorf("%s", diagnoseDBLock(socketPath()))
		}
		return err
	}
	defer a.Stop()
	return fn(a)
}

func runScan(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args, scanFile)
	if err != nil {
		return err
	}
	return withService(scanLocal, func(svc socket.Service) error {
		res, err := svc.Scan(text)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case scanJSON:
			return writeJSON(out, res)
		case scanMatches:
			fmt.Fprint(out, formatMatches(&res))
		default:
			fmt.Fprint(out, formatKeywords(res.Keywords))
		}
		return nil
	})
}

func runFragments(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args, scanFile)
	if err != nil {
		return err
	}
	return withService(scanLocal, func(svc socket.Service) error {
		res, err := svc.Fragments(text)
		if err != nil {
			return err
		}
		if scanJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprint(cmd.OutOrStdout(), formatFragments(&res))
		return nil
	})
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// clientService adapts a socket client to socket.Service so commands can
// treat the daemon and an in-process App alike.
type clientService struct {
	c *socket.Client
}

func (s clientService) Scan(text string) (socket.ScanResult, error) {
	res, err := s.c.Scan(text)
	if err != nil {
		return socket.ScanResult{}, err
	}
	return *res, nil
}

func (s clientService) Fragments(text string) (socket.FragmentsResult, error) {
	res, err := s.c.Fragments(text)
	if err != nil {
		return socket.FragmentsResult{}, err
	}
	return *res, nil
}

func (s clientService) Stats() socket.StatsResult {
	res, err := s.c.Stats()
	if err != nil {
		return socket.StatsResult{}
	}
	return *res
}

func (s clientService) Reload(ctx context.Context) (socket.ReloadResult, error) {
	res, err := s.c.Reload()
	if err != nil {
		return socket.ReloadResult{}, err
	}
	return *res, nil
}
