package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kinarow/egtb/internal/archive"
	"github.com/kinarow/egtb/internal/board"
	"github.com/kinarow/egtb/internal/config"
	"github.com/kinarow/egtb/internal/tablebase"
)

// errVerify is returned by verify when any table fails its digest check.
var errVerify = errors.New("tablebase verification failed")

func (a *app) generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Build every table for the configured shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := tablebase.BuildSet(cmd.Context(), a.tablebase())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(a.cfg.Dir, tablebase.ManifestName(m.Dims, m.RunLength)))
			return nil
		},
	}
}

func (a *app) probeCmd() *cobra.Command {
	var moves string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Replay moves and print the tablebase outcome after each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := board.ParseMoves(moves)
			if err != nil {
				return err
			}
			m, err := a.manifest(false)
			if err != nil {
				return err
			}
			b, err := board.New(a.cfg.Dims, a.cfg.RunLength)
			if err != nil {
				return err
			}

			cfg := a.tablebase()
			out := cmd.OutOrStdout()
			report := func(label string) error {
				r, err := tablebase.OpenFromManifest(cfg, m, b.MoveCount())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-12s %s\n", label, r.OutcomeAt(b))
				return nil
			}

			if err := report("start"); err != nil {
				return err
			}
			for _, mv := range list {
				if err := b.PushMove(mv); err != nil {
					return err
				}
				if err := report(mv.String()); err != nil {
					return err
				}
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, b.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&moves, "moves", "", "comma separated moves, e.g. 0-0,0-1")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash every table listed in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manifest(true)
			if err != nil {
				return err
			}
			failed := 0
			for _, t := range m.Tables {
				ok, actual, err := tablebase.VerifyFile(filepath.Join(a.cfg.Dir, t.File), t.SHA256)
				switch {
				case err != nil:
					failed++
					a.logger.Error().Err(err).Str("file", t.File).Msg("cannot hash table")
				case !ok:
					failed++
					a.logger.Error().
						Str("file", t.File).
						Str("sha256", actual).
						Str("expected", t.SHA256).
						Msg("digest mismatch")
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "ok %s\n", t.File)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d tables", errVerify, failed, len(m.Tables))
			}
			a.logger.Info().Int("tables", len(m.Tables)).Msg("all tables verified")
			return nil
		},
	}
}

func (a *app) archiveCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Bundle the manifest and all tables into one compressed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manifest(true)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(a.cfg.Dir, fmt.Sprintf("%s-%d.ttba", config.FormatDims(m.Dims), m.RunLength))
			}
			stats, err := archive.Write(out, a.cfg.Dir, m)
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("path", out).
				Int("files", stats.Files).
				Int("uncompressed", stats.UncompressedSize).
				Int("compressed", stats.CompressedSize).
				Dur("elapsed", stats.CompressTime).
				Msg("archive written")
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "archive path (default <dir>/<dims>-<run>.ttba)")
	return cmd
}

func (a *app) extractCmd() *cobra.Command {
	var in string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Unpack an archive into the tablebase directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := archive.Extract(in, a.cfg.Dir)
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("dir", a.cfg.Dir).
				Str("dims", config.FormatDims(m.Dims)).
				Int("run_length", m.RunLength).
				Int("tables", len(m.Tables)).
				Msg("archive extracted")
			fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(a.cfg.Dir, tablebase.ManifestName(m.Dims, m.RunLength)))
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "archive to unpack")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}
