package cli

import (
	"fmt"
	"net/http"
	"strings"

	bufra "github.com/avvmoto/buf-readerat"
	"github.com/snabb/httpreaderat"
	"github.com/spf13/cobra"

	"github.com/ralt/pypiview/internal/archive"
	"github.com/ralt/pypiview/internal/config"
	"github.com/ralt/pypiview/internal/index"
	"github.com/ralt/pypiview/internal/models"
	"github.com/ralt/pypiview/internal/pkgmeta"
)

const remoteReadBufferSize = 1 << 20

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var (
		indexURL   string
		legacyJSON bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <package> <filename>",
		Short: "Print an archive's metadata without caching it",
		Long: `Resolves the archive against the index and reads its metadata
member over HTTP range requests, fetching only the bytes needed instead of
downloading the whole archive.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, filename := args[0], args[1]

			client := index.NewHTTPClient()
			var repo index.Repository
			if legacyJSON {
				repo = index.NewLegacyJSONRepository(indexURL, client)
			} else {
				repo = index.NewSimpleRepository(indexURL, client)
			}

			descriptors, err := repo.FilesForPackage(cmd.Context(), index.NormalizePackageName(pkg))
			if err != nil {
				return err
			}

			var url string
			for _, desc := range descriptors {
				if desc.Filename == filename {
					url = desc.URL
					break
				}
			}
			if url == "" {
				return models.NewError(models.ArchiveNotFound, fmt.Sprintf("%s has no file %s", pkg, filename))
			}

			return inspectRemote(cmd, url, filename)
		},
	}

	cmd.Flags().StringVar(&indexURL, "index-url", config.DefaultIndexURL, "Package index base URL")
	cmd.Flags().BoolVar(&legacyJSON, "legacy-json", false, "Use the legacy /pypi/{package}/json API instead of the simple API")

	return cmd
}

func inspectRemote(cmd *cobra.Command, url, filename string) error {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	remote, err := httpreaderat.New(nil, req, nil)
	if err != nil {
		return models.WrapError(models.UpstreamUnavailable, "range request failed", err)
	}
	buffered := bufra.NewBufReaderAt(remote, remoteReadBufferSize)

	a, err := archive.OpenReaderAt(buffered, remote.Size(), filename)
	if err != nil {
		return err
	}

	path, record, err := pkgmeta.Extract(a, config.DefaultRenderLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s (%s)\n", path, a.Kind)
	for _, key := range record.Keys() {
		for _, value := range record.Get(key) {
			fmt.Fprintf(out, "%s: %s\n", key, strings.ReplaceAll(value, "\n", "\n  "))
		}
	}
	return nil
}
