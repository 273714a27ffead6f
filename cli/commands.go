package cli

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"go-bpt/util/timer"
)

func parseKey(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid key %q", s)
	}
	return uint32(v), nil
}

// lcg is the linear congruential generator used to derive load keys.
func lcg(v uint32) uint32 {
	return uint32((1103515245*uint64(v) + 12345) % (1 << 31))
}

// withSession opens the tree, runs fn and closes the tree, keeping the
// first error.
func (a *app) withSession(readOnly bool, fn func(s *session) error) (err error) {
	s, err := a.open(readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create an empty tree, replacing any existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.create()
			if err != nil {
				return err
			}
			if err := s.close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (root %d)\n", a.cfg.Storage.Path, s.tree.Root())
			return nil
		},
	}
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Insert or replace the record of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return a.withSession(false, func(s *session) error {
				return s.tree.Insert(key, []byte(args[1]))
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the record of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return a.withSession(true, func(s *session) error {
				val, found, err := s.tree.Get(key)
				if err != nil {
					return err
				}
				if !found {
					return errors.Errorf("key %d not found", key)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", val)
				return nil
			})
		},
	}
}

func (a *app) delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			return a.withSession(false, func(s *session) error {
				deleted, err := s.tree.Delete(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted: %t\n", deleted)
				return nil
			})
		},
	}
}

func (a *app) scanCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scan <lo> <hi>",
		Short: "Print the keys and records in [lo, hi]",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lo, err := parseKey(args[0])
			if err != nil {
				return err
			}
			hi, err := parseKey(args[1])
			if err != nil {
				return err
			}
			return a.withSession(true, func(s *session) error {
				n := 0
				return s.tree.RangeQuery(lo, hi, func(key uint32, val []byte) (bool, error) {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", key, val)
					n++
					return limit > 0 && n >= limit, nil
				})
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after this many entries (0 for no limit)")
	return cmd
}

func (a *app) heightCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "height",
		Short: "Print the number of tree levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(true, func(s *session) error {
				h, err := s.tree.Height()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
				return nil
			})
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the structural invariants of the tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(true, func(s *session) error {
				if err := s.tree.Verify(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func (a *app) loadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <n>",
		Short: "Insert n pseudo-random keys, the i-th holding i",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 0 {
				return errors.Errorf("invalid count %q", args[0])
			}

			return a.withSession(false, func(s *session) error {
				var loaded atomic.Int64
				stop := timer.SetInterval(context.Background(), time.Second, func() {
					a.log.WithField("loaded", loaded.Load()).Info("loading")
				})
				defer stop()

				val := make([]byte, 4)
				for i := 0; i < n; i++ {
					binary.BigEndian.PutUint32(val, uint32(i))
					if err := s.tree.Insert(lcg(lcg(lcg(uint32(i)))), val); err != nil {
						return err
					}
					loaded.Add(1)
				}

				h, err := s.tree.Height()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "loaded %d keys, height %d\n", n, h)
				return nil
			})
		},
	}
}

func (a *app) dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print the tree structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(true, func(s *session) error {
				return s.tree.Print(cmd.OutOrStdout())
			})
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print tree and buffer statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(true, func(s *session) error {
				count := 0
				if err := s.tree.RangeQuery(0, ^uint32(0), func(uint32, []byte) (bool, error) {
					count++
					return false, nil
				}); err != nil {
					return err
				}
				h, err := s.tree.Height()
				if err != nil {
					return err
				}

				st := s.bm.Stats()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "root:      %d\n", s.tree.Root())
				fmt.Fprintf(out, "height:    %d\n", h)
				fmt.Fprintf(out, "keys:      %d\n", count)
				fmt.Fprintf(out, "pages:     %d\n", st.NextID-1)
				fmt.Fprintf(out, "resident:  %d\n", st.Resident)
				fmt.Fprintf(out, "read-only: %t\n", st.ReadOnly)
				return nil
			})
		},
	}
}
