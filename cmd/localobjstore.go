// Handle the "gcrest localobjstore" command
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/serverlessresearch/gcrest/pkg/objstore"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var localObjStoreConfig struct {
	address string
	buckets []string
	verbose bool
}

var localObjStoreCmd = &cobra.Command{
	Use:   "localobjstore",
	Short: "Run an in-memory Cloud Storage emulator",
	Long: `Serve a subset of the Cloud Storage JSON API from memory. Point
transport.endpoints."storage.googleapis.com" at the printed address to use it.`,

	// Don't need the pre-run and post-run declared in root.go
	PersistentPreRun:  func(cmd *cobra.Command, args []string) {},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {},

	RunE: func(cmd *cobra.Command, args []string) error {
		log := logrus.New()
		if localObjStoreConfig.verbose {
			log.SetLevel(logrus.DebugLevel)
		}

		s := objstore.NewServer(localObjStoreConfig.address, log)
		for _, bucket := range localObjStoreConfig.buckets {
			if err := s.Store().CreateBucket(bucket); err != nil {
				return errors.Wrap(err, "Failed to seed bucket")
			}
		}
		if err := s.Start(); err != nil {
			return err
		}

		// Shutdown cleanly on ctrl-c or sigterm from kill
		done := make(chan struct{})
		go func() {
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			<-c
			close(done)
		}()
		<-done

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			return err
		}
		s.Wait()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(localObjStoreCmd)
	localObjStoreCmd.Flags().StringVar(&localObjStoreConfig.address, "address", "localhost:9023", "address to listen on")
	localObjStoreCmd.Flags().StringSliceVar(&localObjStoreConfig.buckets, "bucket", []string{}, "buckets to create at startup")
	localObjStoreCmd.Flags().BoolVarP(&localObjStoreConfig.verbose, "verbose", "v", false, "log every request")
}
