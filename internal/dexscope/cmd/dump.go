package cmd

import (
	"errors"
	"fmt"
	pathpkg "path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"dexscope/internal/batch"
	"dexscope/internal/logging"
	"dexscope/internal/output"
	"dexscope/internal/source"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [input]",
	Short: "Write the decoded tables of every container as JSON",
	Long: `Decode every DEX container found in the input and write its tables as
JSON files (strings, types, protos, fields, methods, classes) under
<out>/<group>/<name>/, where group is the APK or directory the container
came from.`,
	Example: `
# Dump one APK
dexscope dump app.apk --out ./outputs

# Dump a tree of unpacked APKs with 8 workers, logging to a file
DEXSCOPE_LOG_TO_FILE=1 dexscope dump ./data/unzipped -w 8
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := logging.NewLogger(".", cfg.LogToFile)
		defer logger.Close()

		srcs, err := source.Collect(args[0], cfg.Recursive)
		if err != nil {
			return err
		}
		if len(srcs) == 0 {
			logger.Warn("No DEX containers found", "input", args[0])
			return nil
		}
		logger.Info("Decoding containers", "count", len(srcs), "workers", cfg.Workers, "out", cfg.OutputDir)

		d := &dumper{out: cfg.OutputDir, logger: logger}
		results := batch.Decode(cmd.Context(), srcs, batch.Options{
			Workers:        cfg.Workers,
			MaxInputSize:   cfg.MaxInputSize,
			OnResult:       d.handle,
			DropContainers: true,
		})
		logger.Info("Done", "written", d.written, "failed", batch.Failed(results))
		if err := d.err(); err != nil {
			return err
		}
		return failures(results)
	},
}

// dumper writes each container's tables from the worker that decoded it.
// Output directories are distinct per source, so only the counters and
// errors are shared.
type dumper struct {
	out    string
	logger *logging.LoggerCloser

	mu      sync.Mutex
	written int
	errs    []error
}

func (d *dumper) handle(r batch.Result) {
	if r.Err != nil {
		d.logger.Error("Decode failed", "file", r.Source, "error", r.Err)
		return
	}
	h := r.Container.Header
	st := r.Container.Stats()
	d.logger.Debug("Decoded", "file", r.Source, "version", h.Version, "size", h.FileSize,
		"adler32", fmt.Sprintf("0x%08x", h.Checksum), "sha1", h.SHA1(), "elapsed", r.Elapsed)
	d.logger.Debug("Tables", "file", r.Source, "strings", st.Strings, "types", st.Types,
		"protos", st.Protos, "fields", st.Fields, "methods", st.Methods, "classes", st.Classes)

	dir, err := output.WriteContainer(d.out, r.Source, r.Container)
	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.errs = append(d.errs, fmt.Errorf("write %s: %w", r.Source, err))
		return
	}
	d.written++
	d.logger.Info("Wrote tables", "file", r.Source, "dir", pathpkg.Clean(dir))
}

func (d *dumper) err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.errs...)
}

func init() {
	dumpCmd.Flags().StringP("out", "o", "outputs", "Output directory")
	rootCmd.AddCommand(dumpCmd)
}
