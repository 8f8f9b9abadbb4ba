package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	notify "github.com/olandr/splitnotify"
)

var (
	watchSplit    bool
	watchWatcher  string
	watchCommands bool

	watchCmd = &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Print the changes below one or more directories",
		Long: `Watch the given directories and print one line per changed path.

Each line holds the time the change was observed, its flags and the path.
Stop with Ctrl+C.

With --commands every line read from stdin is run as a command: a JSON array
holding the command name followed by its arguments. The result is printed as
JSON.`,
		Example: `  # Watch with the split watcher
  splitwatch watch --split /srv/data

  # Trigger a recrawl of a top-level directory
  echo '["debug-split-recrawl", "/srv/data", "/srv/data/logs"]' | splitwatch watch --split --commands /srv/data`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWatch,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&watchSplit, "split", false, "use the split watcher (sets prefer_split_watcher)")
	watchCmd.Flags().StringVar(&watchWatcher, "watcher", "", "force the named watcher")
	watchCmd.Flags().BoolVar(&watchCommands, "commands", false, "run JSON commands read from stdin")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchSplit {
		cfg.PreferSplitWatcher = true
	}
	if watchWatcher != "" {
		cfg.Watcher = watchWatcher
	}

	n, err := notify.NewNotifyWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	defer n.Close()

	events := make(chan notify.EventInfo, cfg.EventBuffer)
	for _, dir := range args {
		r, err := n.Watch(dir, events)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		notify.Logger().WithFields(logrus.Fields{"root": r.Path(), "watcher": r.WatcherName()}).Info("Ready")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if watchCommands {
		go runCommands(ctx, n, cmd.InOrStdin(), out)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case ei := <-events:
			fmt.Fprintf(out, "%s %-24s %s\n", ei.Timestamp().Format("15:04:05.000"), ei.Flags(), ei.Path())
		}
	}
}

// runCommands runs one command per line of r until r is exhausted or ctx is
// done.
func runCommands(ctx context.Context, n *notify.Notify, r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	enc := json.NewEncoder(w)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		var args []interface{}
		if err := json.Unmarshal(scanner.Bytes(), &args); err != nil {
			enc.Encode(map[string]string{"error": fmt.Sprintf("invalid command: %v", err)})
			continue
		}
		resp, err := n.Command(args)
		if err != nil {
			enc.Encode(map[string]string{"error": err.Error()})
			continue
		}
		enc.Encode(resp)
	}
}
