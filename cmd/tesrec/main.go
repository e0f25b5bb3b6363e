// Command tesrec is the recording utility of spec.md §6: it connects to
// a Third Eye Scene server over TCP and writes whatever arrives to a
// numbered ".3es" file, the way the original C++ 3esrec utility does.
package main

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/tesceneio/tes/config"
	"github.com/tesceneio/tes/internal/logging"
	"github.com/tesceneio/tes/source"
)

const defaultPort = 33500

var (
	ip        string
	port      int
	persist   bool
	overwrite bool
	quiet     bool
)

func main() {
	root := &cobra.Command{
		Use:   "tesrec [prefix]",
		Short: "Record a Third Eye Scene server stream to disk",
		Long: "tesrec connects to a Third Eye Scene server and records everything\n" +
			"it sends to a numbered <prefix>NNN.3es file in the current directory.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := "tes"
			if len(args) == 1 {
				prefix = args[0]
			}
			return record(prefix)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar(&ip, "ip", "127.0.0.1", "server IP address to connect to")
	root.Flags().IntVar(&port, "port", defaultPort, "server port to connect on")
	root.Flags().BoolVarP(&persist, "persist", "p", false, "keep running and record each new connection to a fresh file")
	root.Flags().BoolVarP(&overwrite, "overwrite", "w", false, "overwrite <prefix>000.3es instead of finding the next free number")
	root.Flags().BoolVarP(&quiet, "quiet", "q", false, "disable non-critical logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func record(prefix string) error {
	if quiet {
		logging.SetLevel("warn")
	}
	lg := logging.Default()
	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
	dialTimeout := config.Default.Live.DialTimeout()

	for {
		path, err := nextFilename(".", prefix, overwrite)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("tesrec: create %s: %w", path, err)
		}

		lg.Infof("tesrec: connecting to %s, recording to %s", addr, path)
		sink := newRecordSink(f)
		live := source.NewLive(addr, sink, source.LiveSettings{
			Reconnect:   false,
			DialTimeout: dialTimeout,
		})
		live.Join()
		f.Close()

		if sink.bytesWritten() == 0 {
			os.Remove(path)
			lg.Warnf("tesrec: no data recorded from %s, discarding %s", addr, path)
		} else {
			lg.Infof("tesrec: finished recording %s (%d bytes)", path, sink.bytesWritten())
		}

		if !persist {
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}
