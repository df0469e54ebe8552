package create

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"video-conversion/cmd/convd/cmd/cli"
	"video-conversion/internal/app"
	"video-conversion/internal/app/conversion"
	"video-conversion/internal/app/media"
	"video-conversion/internal/app/util/files"
)

var (
	contentHash   string
	name          string
	subtitle      string
	mediaInfoFile string
	noProbe       bool
)

func init() {
	Cmd.Flags().StringVar(&contentHash, "hash", "", "register an upload already in the file root instead of importing a file")
	Cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the file name)")
	Cmd.Flags().StringVarP(&subtitle, "subtitle", "s", "", "also request subtitles in this language")
	Cmd.Flags().StringVar(&mediaInfoFile, "media-info", "", "JSON file with ffprobe output for the upload")
	Cmd.Flags().BoolVar(&noProbe, "no-probe", false, "do not run ffprobe on the imported file")
}

// Cmd represents the create command
var Cmd = &cobra.Command{
	Use:   "create [file]",
	Short: "Create a conversion job for a local video file",
	Long: `Create a conversion job for a local video file

- Copies the file into the content-addressed file root
- Probes it with ffprobe when available, for the output resolution
- Creates an accepted conversion job for its content hash
- Creating a job that already exists returns the existing job`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (len(args) == 0) == (contentHash == "") {
			return errors.New("pass either a file or --hash")
		}

		cfg, logger, err := cli.Setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		req := conversion.CreateRequest{
			ContentHash:      contentHash,
			Name:             name,
			SubtitleLanguage: subtitle,
		}
		if len(args) == 1 {
			src := args[0]
			req.ContentHash, err = files.NewLocator(cfg.Files.Root).Import(src)
			if err != nil {
				return fmt.Errorf("import %s: %w", src, err)
			}
			req.PathHash = files.PathHash(src)
			if req.Name == "" {
				req.Name = filepath.Base(src)
			}
			logger.Info("imported upload", zap.String("path", src), zap.String("content_hash", req.ContentHash))

			if mediaInfoFile == "" && !noProbe && media.Available() {
				if req.MediaInfo, err = media.Probe(cmd.Context(), src); err != nil {
					logger.Warn("probe failed, creating job without media info", zap.Error(err))
					req.MediaInfo = nil
				}
			}
		}
		if mediaInfoFile != "" {
			data, err := os.ReadFile(mediaInfoFile)
			if err != nil {
				return err
			}
			req.MediaInfo = json.RawMessage(data)
		}

		engine, cleanup, err := app.InitializeEngine(cfg, nil, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		job, err := engine.CreateJob(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", job.ContentHash, job.Status)
		return nil
	},
}
