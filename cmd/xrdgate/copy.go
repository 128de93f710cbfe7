package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/xrdgate/internal/core/checksum"
	"github.com/Ning0612/xrdgate/internal/progress"
	"github.com/Ning0612/xrdgate/internal/tpc"
)

// copyFlags are the transfer options shared by copy and bulk-copy
type copyFlags struct {
	force    bool
	verify   bool
	checksum string
	srcToken string
	dstToken string
	timeout  time.Duration
	progress bool
}

func (f *copyFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVarP(&f.force, "force", "f", false, "overwrite an existing destination")
	fl.BoolVarP(&f.verify, "verify", "K", false, "verify the copy with a checksum")
	fl.StringVar(&f.checksum, "checksum", "", "checksum as TYPE[:VALUE]; implies --verify")
	fl.StringVar(&f.srcToken, "src-token", "", "source space token")
	fl.StringVar(&f.dstToken, "dst-token", "", "destination space token")
	fl.DurationVar(&f.timeout, "timeout", 0, "third-party copy timeout (0 = engine default)")
	fl.BoolVarP(&f.progress, "progress", "p", false, "print transfer progress")
}

func (f *copyFlags) params(out io.Writer) (*tpc.TransferParams, error) {
	p := &tpc.TransferParams{
		ReplaceExisting:  f.force,
		SourceSpaceToken: f.srcToken,
		DestSpaceToken:   f.dstToken,
		ChecksumCheck:    f.verify || f.checksum != "",
		Timeout:          f.timeout,
	}
	if f.checksum != "" {
		spec, err := checksum.Parse(f.checksum)
		if err != nil {
			return nil, err
		}
		p.ChecksumType, p.ChecksumValue = spec.Type, spec.Value
	}
	if f.progress {
		p.Monitor = func(s progress.Snapshot, src, dst string) {
			fmt.Fprintf(out, "\r[%d] %s", s.JobNum, progress.FormatSnapshot(s))
		}
		p.Events = func(ev progress.Event) {
			fmt.Fprintf(out, "\n%s %s\n", ev.Stage, ev.Message)
		}
	}
	return p, nil
}

func newCopyCmd(a *app) *cobra.Command {
	var flags copyFlags
	cmd := &cobra.Command{
		Use:   "copy SRC DST",
		Short: "Third-party copy one file between two XRootD endpoints",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := flags.params(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if err := a.plugin.Copy(cmd.Context(), params, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s => %s\n", args[0], args[1])
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newBulkCopyCmd(a *app) *cobra.Command {
	var flags copyFlags
	var from string
	cmd := &cobra.Command{
		Use:   "bulk-copy [SRC DST]...",
		Short: "Copy a batch of files in one engine run",
		Long: "Copy a batch of files. Pairs come from the arguments or from --from,\n" +
			"one \"SRC DST [TYPE:VALUE]\" per line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, dsts, sums, err := bulkPairs(args, from)
			if err != nil {
				return err
			}
			params, err := flags.params(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defaultChecksums(sums, flags.checksum)

			res, err := a.plugin.CopyBulk(cmd.Context(), params, srcs, dsts, sums)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, e := range res.Errors {
				if e != nil {
					fmt.Fprintf(out, "FAILED  %s => %s: %v\n", srcs[i], dsts[i], e)
				} else {
					fmt.Fprintf(out, "OK      %s => %s\n", srcs[i], dsts[i])
				}
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d files failed (batch %s)", res.Failed, len(srcs), res.BatchID)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&from, "from", "", "read pairs from file (- for stdin)")
	return cmd
}

// defaultChecksums gives every pair without its own checksum the --checksum value
func defaultChecksums(sums []string, spec string) {
	if spec == "" {
		return
	}
	for i, s := range sums {
		if s == "" {
			sums[i] = spec
		}
	}
}

// bulkPairs collects sources, destinations and optional checksums
func bulkPairs(args []string, from string) (srcs, dsts, sums []string, err error) {
	if len(args)%2 != 0 {
		return nil, nil, nil, fmt.Errorf("arguments must come in SRC DST pairs")
	}
	for i := 0; i < len(args); i += 2 {
		srcs = append(srcs, args[i])
		dsts = append(dsts, args[i+1])
		sums = append(sums, "")
	}
	if from == "" {
		return srcs, dsts, sums, nil
	}

	var r io.Reader = os.Stdin
	if from != "-" {
		f, err := os.Open(from)
		if err != nil {
			return nil, nil, nil, err
		}
		defer f.Close()
		r = f
	}

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 || len(fields) > 3 {
			return nil, nil, nil, fmt.Errorf("%s:%d: want SRC DST [TYPE:VALUE]", from, line)
		}
		srcs = append(srcs, fields[0])
		dsts = append(dsts, fields[1])
		sum := ""
		if len(fields) == 3 {
			sum = fields[2]
		}
		sums = append(sums, sum)
	}
	return srcs, dsts, sums, scanner.Err()
}
