// Command pullsync transfers local files through the acknowledgement-
// gated chunk protocol into a destination directory. It stands in for
// an interactive front end: it registers sources, lets the driver pump
// them, and prints the event stream as transfers progress.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/pullsync/localio"
	"github.com/opd-ai/pullsync/transfer"
)

var (
	outDir    string
	chunkSize int64
	verbose   bool
)

func main() {
	root := &cobra.Command{
		Use:   "pullsync",
		Short: "Pull-based, acknowledgement-gated file transfer",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVar(&outDir, "out", "pullsync-out", "destination directory")
	root.PersistentFlags().Int64Var(&chunkSize, "chunk-size", transfer.DefaultChunkSize, "chunk size in bytes")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newSendCmd(), newWatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup wires a store and driver over the local filesystem.
func setup() (*localio.FileSource, *transfer.Store, *transfer.Driver, error) {
	source := localio.NewFileSource()
	sink, err := localio.NewDirSink(outDir)
	if err != nil {
		return nil, nil, nil, err
	}
	store := transfer.NewStore(source, chunkSize)
	driver := transfer.NewDriver(store, sink)
	return source, store, driver, nil
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <file>...",
		Short: "Transfer the named files into the destination directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, store, driver, err := setup()
			if err != nil {
				return err
			}

			var wg sync.WaitGroup
			var mu sync.Mutex
			failed := 0
			driver.OnDone(func(key transfer.SourceKey, err error) {
				if err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
				}
				wg.Done()
			})

			lengths := make(map[string]int64, len(args))
			for _, name := range args {
				length, err := source.Length(name)
				if err != nil {
					return fmt.Errorf("source %q: %w", name, err)
				}
				lengths[name] = length
			}

			for _, name := range args {
				wg.Add(1)
				store.Register(name, lengths[name])
			}

			wg.Wait()
			driver.Close()

			if failed > 0 {
				return fmt.Errorf("%d of %d transfers did not complete", failed, len(args))
			}
			return nil
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <dir>",
		Short: "Watch a directory and transfer files as they appear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, driver, err := setup()
			if err != nil {
				return err
			}
			defer driver.Close()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()

			if err := watcher.Add(args[0]); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logrus.WithFields(logrus.Fields{
				"function": "watch",
				"dir":      args[0],
			}).Info("Watching for new files")

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					// Registration happens on create, so files should be
					// moved into the watched directory atomically rather
					// than written in place.
					if !ev.Has(fsnotify.Create) {
						continue
					}
					info, err := os.Stat(ev.Name)
					if err != nil || !info.Mode().IsRegular() {
						logrus.WithFields(logrus.Fields{
							"function": "watch",
							"path":     ev.Name,
						}).Debug("Skipping non-regular or unreadable entry")
						continue
					}
					store.Register(ev.Name, info.Size())
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					logrus.WithFields(logrus.Fields{
						"function": "watch",
						"error":    err.Error(),
					}).Error("Watcher error")
				}
			}
		},
	}
}
