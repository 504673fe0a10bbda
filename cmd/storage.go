// Handles the "gcrest storage" command. This command exists solely to contain
// Cloud Storage subcommands (e.g. upload, download, etc..)

package cmd

import (
	"github.com/serverlessresearch/gcrest/pkg/request"
	"github.com/serverlessresearch/gcrest/pkg/storage"
	"github.com/spf13/cobra"
)

var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Cloud Storage objects",
	Long:  `Commands for transferring and inspecting Cloud Storage objects.`,
}

// Filled in by cobra argument parsing in init()
var storageCmdConfig struct {
	bucket     string
	object     string
	file       string
	generation string
	mimeType   string
	gzip       bool
	prefix     string
	delimiter  string
	maxResults int
	pageToken  string
}

func storageParent() storage.Parent {
	return storage.NewParent(storageCmdConfig.bucket, storageCmdConfig.object)
}

var storageDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download an object to a local file",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := request.LocalFile(storageCmdConfig.file)
		if err != nil {
			return err
		}
		opts := storage.GetOptions{Generation: storageCmdConfig.generation}
		if err := await(manager.Storage.Download(storageParent(), file, opts)); err != nil {
			return err
		}
		manager.Logger.Info("Downloaded to " + file.Name())
		return nil
	},
}

var storageOTACmd = &cobra.Command{
	Use:   "ota",
	Short: "Download an object as a firmware image to ota.path",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := storage.GetOptions{Generation: storageCmdConfig.generation}
		return await(manager.Storage.OTA(storageParent(), opts))
	},
}

var storageUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a local file as an object",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := request.LocalFile(storageCmdConfig.file)
		if err != nil {
			return err
		}
		opts := storage.UploadOptions{
			MimeType: storageCmdConfig.mimeType,
			Gzip:     storageCmdConfig.gzip,
		}
		return await(manager.Storage.Upload(storageParent(), file, opts))
	},
}

var storageMetadataCmd = &cobra.Command{
	Use:   "metadata",
	Short: "Print an object's metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := storage.GetOptions{Generation: storageCmdConfig.generation}
		return await(manager.Storage.GetMetadata(storageParent(), opts))
	},
}

var storageListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the objects in a bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := storage.ListOptions{
			Prefix:     storageCmdConfig.prefix,
			Delimiter:  storageCmdConfig.delimiter,
			MaxResults: storageCmdConfig.maxResults,
			PageToken:  storageCmdConfig.pageToken,
		}
		return await(manager.Storage.List(storageParent(), opts))
	},
}

var storageDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an object",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := storage.DeleteOptions{Generation: storageCmdConfig.generation}
		return await(manager.Storage.Delete(storageParent(), opts))
	},
}

func init() {
	rootCmd.AddCommand(storageCmd)
	storageCmd.PersistentFlags().StringVarP(&storageCmdConfig.bucket, "bucket", "b", "", "bucket name")

	objectCmds := []*cobra.Command{storageDownloadCmd, storageOTACmd, storageUploadCmd, storageMetadataCmd, storageDeleteCmd}
	for _, c := range objectCmds {
		storageCmd.AddCommand(c)
		c.Flags().StringVarP(&storageCmdConfig.object, "object", "o", "", "object name")
	}
	for _, c := range []*cobra.Command{storageDownloadCmd, storageOTACmd, storageMetadataCmd, storageDeleteCmd} {
		c.Flags().StringVarP(&storageCmdConfig.generation, "generation", "g", "", "object generation, latest if unset")
	}
	for _, c := range []*cobra.Command{storageDownloadCmd, storageUploadCmd} {
		c.Flags().StringVarP(&storageCmdConfig.file, "file", "f", "", "local file")
	}
	storageUploadCmd.Flags().StringVarP(&storageCmdConfig.mimeType, "mime-type", "m", "", "content type (default application/octet-stream)")
	storageUploadCmd.Flags().BoolVar(&storageCmdConfig.gzip, "gzip", false, "compress while uploading and store with Content-Encoding gzip")

	storageCmd.AddCommand(storageListCmd)
	storageListCmd.Flags().StringVarP(&storageCmdConfig.prefix, "prefix", "p", "", "only names with this prefix")
	storageListCmd.Flags().StringVarP(&storageCmdConfig.delimiter, "delimiter", "d", "", "collapse names below the prefix at this delimiter")
	storageListCmd.Flags().IntVar(&storageCmdConfig.maxResults, "max-results", 0, "page size")
	storageListCmd.Flags().StringVar(&storageCmdConfig.pageToken, "page-token", "", "continue a previous listing")
}
