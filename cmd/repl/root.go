package repl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ValentinKolb/oak/cmd/util"
	"github.com/ValentinKolb/oak/lib/common"
	"github.com/ValentinKolb/oak/lib/db"
	"github.com/ValentinKolb/oak/lib/db/engines/oak"
	"github.com/ValentinKolb/oak/lib/store"
	"github.com/ValentinKolb/oak/lib/store/lstore"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const help = `commands:
  set <key> <value>   store a value (the rest of the line)
  get <key>           print the value of a key
  has <key>           print whether a key exists
  dump                print all entries in key order
  info                print database information as JSON
  metrics             print operation counters (Prometheus text format)
  help                print this help
  quit                leave the shell`

var (
	errQuit = errors.New("quit")

	replShards = 1

	ReplCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for an in-memory oak store",
		Long: `Starts an in-memory key-value store backed by the oak engine and reads
commands from stdin. Nothing is persisted.
The format of the environment variables is OAK_<flag> (e.g. OAK_SHARDS=8)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "shards"
	ReplCmd.Flags().Int(key, 1, util.WrapString("Number of trees the key space is split into"))
}

func processConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	replShards = viper.GetInt("shards")
	if replShards < 1 {
		return fmt.Errorf("shards must be at least 1, got %d", replShards)
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	s := lstore.NewLocalStore(func() db.KVDB {
		return oak.NewOakDB(&oak.DBOptions{NumShards: replShards})
	})
	defer lstore.DB(s).Close()

	return Run(cmd.InOrStdin(), cmd.OutOrStdout(), s)
}

// Run executes commands read line by line from in against s until in is exhausted
// or quit is entered. Command errors are printed and do not end the session.
func Run(in io.Reader, out io.Writer, s store.IStore) error {
	log := logger.GetLogger(common.LogCLI)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	fmt.Fprintln(out, `oak shell, type "help" for a list of commands`)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := execute(line, out, s)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			log.Debugf("command %q failed: %v", line, err)
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func execute(line string, out io.Writer, s store.IStore) error {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case "set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return fmt.Errorf("usage: set <key> <value>")
		}
		if err := s.Set(key, []byte(value)); err != nil {
			return err
		}
		fmt.Fprintln(out, "OK")

	case "get":
		if rest == "" {
			return fmt.Errorf("usage: get <key>")
		}
		value, found, err := s.Get(rest)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintln(out, "(not found)")
			return nil
		}
		fmt.Fprintf(out, "%s\n", value)

	case "has":
		if rest == "" {
			return fmt.Errorf("usage: has <key>")
		}
		found, err := s.Has(rest)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, found)

	case "dump":
		database := lstore.DB(s)
		if database == nil || !database.SupportsFeature(db.FeatureDump) {
			return store.NewError(store.RetCUnsupportedOperation, "Dump operation is not supported")
		}
		return database.Dump(out)

	case "info":
		info, err := s.GetDBInfo()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding info: %w", err)
		}
		fmt.Fprintf(out, "%s\n", data)

	case "metrics":
		writer, ok := lstore.DB(s).(db.MetricsWriter)
		if !ok {
			return store.NewError(store.RetCUnsupportedOperation, "the database exports no metrics")
		}
		writer.WriteMetrics(out)

	case "help":
		fmt.Fprintln(out, help)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q (try help)", command)
	}
	return nil
}
