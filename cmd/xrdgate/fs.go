package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/xrdgate/internal/adapter"
	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/domain"
	"github.com/Ning0612/xrdgate/internal/progress"
	"github.com/Ning0612/xrdgate/internal/service"
)

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat URL",
		Short: "Show metadata of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fi, err := a.plugin.Stat(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:  %s\n", fi.Name)
			fmt.Fprintf(out, "Type:  %s\n", typeName(fi.Type))
			fmt.Fprintf(out, "Size:  %d (%s)\n", fi.Size, progress.FormatBytes(fi.Size))
			fmt.Fprintf(out, "Mode:  %s\n", fi.Mode)
			fmt.Fprintf(out, "MTime: %s\n", fi.ModTime.Format(time.RFC3339))
			return nil
		},
	}
}

func typeName(t domain.FileType) string {
	switch t {
	case domain.FileTypeDirectory:
		return "directory"
	case domain.FileTypeRegular:
		return "file"
	default:
		return "other"
	}
}

func newLsCmd(a *app) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "ls URL",
		Short: "List a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listDir(cmd.Context(), a.plugin, args[0], long, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show mode, size and modification time")
	return cmd
}

func listDir(ctx context.Context, p *service.Plugin, url string, long bool, out io.Writer) error {
	d, err := p.Opendir(ctx, url)
	if err != nil {
		return err
	}
	defer p.Closedir(d)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	for {
		if !long {
			ent, err := p.Readdir(ctx, d)
			if err != nil {
				return err
			}
			if ent == nil {
				return nil
			}
			name := ent.Name
			if ent.Type == domain.FileTypeDirectory {
				name += "/"
			}
			fmt.Fprintln(tw, name)
			continue
		}

		ent, fi, err := p.ReaddirWithStat(ctx, d)
		if err != nil {
			return err
		}
		if ent == nil {
			return nil
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fi.Mode, progress.FormatBytes(fi.Size),
			fi.ModTime.Format("2006-01-02 15:04"), ent.Name)
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "mkdir URL",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := parseMode(mode)
			if err != nil {
				return err
			}
			return a.plugin.Mkdir(cmd.Context(), args[0], perm)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "755", "permission bits in octal")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm URL...",
		Short: "Remove files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, url := range args {
				if err := a.plugin.Unlink(cmd.Context(), url); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newRmdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rmdir URL",
		Short: "Remove an empty directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.plugin.Rmdir(cmd.Context(), args[0])
		},
	}
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv OLD NEW",
		Short: "Rename a file or directory on the same server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.plugin.Rename(cmd.Context(), args[0], args[1])
		},
	}
}

func newChmodCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chmod MODE URL",
		Short: "Change permission bits (octal)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := parseMode(args[0])
			if err != nil {
				return err
			}
			return a.plugin.Chmod(cmd.Context(), args[1], perm)
		},
	}
}

func parseMode(s string) (os.FileMode, error) {
	n, err := strconv.ParseUint(s, 8, 32)
	if err != nil || n > 0777 {
		return 0, fmt.Errorf("invalid mode %q: want octal like 755", s)
	}
	return os.FileMode(n), nil
}

func newAccessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "access MODE URL",
		Short: "Check access; MODE is any of r, w, x or f for existence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := parseAccess(args[0])
			if err != nil {
				return err
			}
			if err := a.plugin.Access(cmd.Context(), args[1], mode); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func parseAccess(s string) (int, error) {
	mode := adapter.AccessExists
	for _, c := range strings.ToLower(s) {
		switch c {
		case 'r':
			mode |= adapter.AccessRead
		case 'w':
			mode |= adapter.AccessWrite
		case 'x':
			mode |= adapter.AccessExecute
		case 'f':
		default:
			return 0, fmt.Errorf("invalid access mode %q", s)
		}
	}
	return mode, nil
}

func newChecksumCmd(a *app) *cobra.Command {
	var offset, length int64
	cmd := &cobra.Command{
		Use:   "checksum TYPE URL",
		Short: "Ask the server for a file checksum",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.plugin.Checksum(cmd.Context(), args[1], args[0], offset, length)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", checksum.NormalizeType(args[0]), value)
			return nil
		},
	}
	cmd.Flags().Int64Var(&offset, "offset", 0, "start of the checksummed range")
	cmd.Flags().Int64Var(&length, "length", 0, "length of the checksummed range")
	return cmd
}

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat URL",
		Short: "Write a remote file to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := a.plugin.ReadAll(cmd.Context(), args[0], cmd.OutOrStdout())
			return err
		},
	}
}

func newPutCmd(a *app) *cobra.Command {
	var verify string
	var showProgress bool
	cmd := &cobra.Command{
		Use:   "put LOCAL URL",
		Short: "Upload a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return upload(cmd.Context(), a.plugin, args[0], args[1], checksum.Algorithm(verify), showProgress, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&verify, "verify", "", "compare a checksum of this type after upload (e.g. adler32)")
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "print upload progress")
	return cmd
}

// upload copies local to url and optionally verifies the server checksum
func upload(ctx context.Context, p *service.Plugin, local, url string, algo checksum.Algorithm, showProgress bool, status io.Writer) error {
	src, err := os.Open(local)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}

	dst, err := p.Open(ctx, url, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	total := uint64(info.Size())
	var r io.Reader = src
	if showProgress {
		r = progress.NewReader(src, func(n int64) {
			fmt.Fprintf(status, "\r%s", progress.FormatProgress(uint64(n), total, 30))
		})
	}

	_, copyErr := io.Copy(dst, r)
	closeErr := p.Close(dst)
	if showProgress {
		fmt.Fprintln(status)
	}
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}

	if algo == "" {
		return nil
	}
	return verifyUpload(ctx, p, src, url, algo)
}

func verifyUpload(ctx context.Context, p *service.Plugin, src io.ReadSeeker, url string, algo checksum.Algorithm) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}
	want, err := checksum.NewDefaultCalculator().Calculate(ctx, src, algo)
	if err != nil {
		return err
	}
	got, err := p.Checksum(ctx, url, string(algo), 0, 0)
	if err != nil {
		return err
	}
	// servers may print adler32 without leading zeros
	if !strings.EqualFold(strings.TrimLeft(got, "0"), strings.TrimLeft(want, "0")) {
		return fmt.Errorf("%w: %s local %s, remote %s", domain.ErrChecksumMismatch, algo, want, got)
	}
	return nil
}
