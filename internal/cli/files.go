package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/asad/azurefs/internal/filesystem"
	"github.com/asad/azurefs/internal/logging"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		deep   bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "ls [prefix]",
		Short: "List files under a prefix",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			s.logger.Debug("listing contents",
				logging.String("prefix", prefix),
				logging.Bool("deep", deep),
			)

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			listing := s.disk.ListContents(cmd.Context(), prefix, deep)
			for listing.Next() {
				attrs := listing.Attributes()
				if asJSON {
					if err := enc.Encode(attrs); err != nil {
						return err
					}
					continue
				}
				size, _ := attrs.FileSize()
				fmt.Fprintf(out, "%10d  %s\n", size, attrs.Path())
			}
			return listing.Err()
		},
	}
	cmd.Flags().BoolVar(&deep, "deep", false, "accepted for compatibility; blob listings are always a flat prefix match")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per file")
	return cmd
}

func newCatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cat PATH",
		Short: "Write a file's contents to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			body, err := s.disk.ReadStream(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer body.Close()

			_, err = io.Copy(cmd.OutOrStdout(), body)
			return err
		},
	}
}

func newPutCmd(opts *globalOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{
		Use:   "put PATH [FILE|-]",
		Short: "Upload a local file, or stdin, to PATH",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			var src io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}

			var cfg filesystem.Config
			if contentType != "" {
				cfg = cfg.With(filesystem.OptionContentType, contentType)
			}
			return s.disk.WriteStream(cmd.Context(), args[0], src, cfg)
		},
	}
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type to store (default: derived from the extension)")
	return cmd
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm PATH",
		Short: "Delete a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			return s.disk.Delete(cmd.Context(), args[0])
		},
	}
}

func newCopyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy a file within the disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			return s.disk.Copy(cmd.Context(), args[0], args[1], filesystem.Config{})
		},
	}
}

func newMoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Move a file within the disk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()
			return s.disk.Move(cmd.Context(), args[0], args[1], filesystem.Config{})
		},
	}
}

func newStatCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat PATH",
		Short: "Print a file's attributes as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			attrs, err := s.disk.FileSize(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(attrs)
		},
	}
}

func newExistsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists PATH",
		Short: "Print whether a file exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			ok, err := s.disk.FileExists(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(ok))
			return nil
		},
	}
}

func newURLCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "url PATH",
		Short: "Print the public URL of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			u, err := s.disk.URL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newPresignCmd(opts *globalOptions) *cobra.Command {
	var (
		expires time.Duration
		upload  bool
	)
	cmd := &cobra.Command{
		Use:   "presign PATH",
		Short: "Print a time-limited signed URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if expires <= 0 {
				return fmt.Errorf("--expires must be positive")
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			expiration := time.Now().Add(expires)
			out := cmd.OutOrStdout()
			if upload {
				signed, err := s.disk.TemporaryUploadURL(cmd.Context(), args[0], expiration, filesystem.Config{})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, signed.URL)
				for k, v := range signed.Headers {
					fmt.Fprintf(out, "%s: %s\n", k, v)
				}
				return nil
			}

			signed, err := s.disk.TemporaryURL(cmd.Context(), args[0], expiration, filesystem.Config{})
			if err != nil {
				return err
			}
			fmt.Fprintln(out, signed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&expires, "expires", time.Hour, "link lifetime")
	cmd.Flags().BoolVar(&upload, "upload", false, "sign for upload (read, create, write)")
	return cmd
}
