package cli

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/anoideaopen/pbreflect/core/reflection"
	"github.com/anoideaopen/pbreflect/core/rpc"
	"github.com/anoideaopen/pbreflect/internal/config"
	"github.com/anoideaopen/pbreflect/internal/server"
	"github.com/anoideaopen/pbreflect/internal/source"
	"github.com/anoideaopen/pbreflect/version"
	"github.com/spf13/cobra"
)

type nsResult struct {
	Path string `json:"path" yaml:"path"`
	NS   string `json:"ns" yaml:"ns"`
}

func newNSCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "ns <path>",
		Short:   "Print the namespace holding the entity at path",
		Example: "  pbreflect ns shop.v1.Order --source shop.js",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			v, ok := reflection.Resolve(args[0], root)
			if !ok {
				return fmt.Errorf("%w: '%s'", ErrNotFound, args[0])
			}

			res := nsResult{Path: args[0], NS: reflection.FindNS(v, root)}
			return render(cmd.OutOrStdout(), a.cfg.Format, res, func(w io.Writer) {
				t := newTable(w, "PATH", "NAMESPACE")
				t.addRow(res.Path, res.NS)
				t.render()
			})
		},
	}
}

func newMessageCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "message <path>",
		Short:   "Print the fields of the message type at path",
		Example: "  pbreflect message shop.v1.Order --source shop.pb --format json",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			mt, err := reflection.ResolveMessage(args[0], root)
			if err != nil {
				return err
			}
			if mt == nil {
				return fmt.Errorf("%w: '%s'", ErrNotFound, args[0])
			}

			m := reflection.ReflectMessage(mt, root)
			return render(cmd.OutOrStdout(), a.cfg.Format, m, func(w io.Writer) {
				messageTable(w, m)
			})
		},
	}
}

func newServiceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "service <path>",
		Short:   "Print the methods of the service type at path",
		Example: "  pbreflect service shop.v1.OrderService --source shop.js",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			st, err := reflection.ResolveServiceType(args[0], root)
			if err != nil {
				return err
			}
			if st == nil {
				return fmt.Errorf("%w: '%s'", ErrNotFound, args[0])
			}

			s := reflection.ReflectService(st.New(nil), root)
			return render(cmd.OutOrStdout(), a.cfg.Format, s, func(w io.Writer) {
				serviceTable(w, s)
			})
		},
	}
}

type dumpResult struct {
	Messages []*reflection.ReflectedMessageType `json:"messages" yaml:"messages"`
	Services []*reflection.ReflectedService     `json:"services" yaml:"services"`
}

func newDumpCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print every message and service type of the source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root, err := a.registry(cmd.Context())
			if err != nil {
				return err
			}

			res := dumpResult{
				Messages: make([]*reflection.ReflectedMessageType, 0),
				Services: make([]*reflection.ReflectedService, 0),
			}
			root.Walk(func(_, _ string, v any) bool {
				switch t := v.(type) {
				case *rpc.ServiceType:
					res.Services = append(res.Services, reflection.ReflectService(t.New(nil), root))
				case reflection.MessageTypeLike:
					res.Messages = append(res.Messages, reflection.ReflectMessage(t, root))
				}
				return true
			})

			return render(cmd.OutOrStdout(), a.cfg.Format, res, func(w io.Writer) {
				for _, m := range res.Messages {
					messageTable(w, m)
					fmt.Fprintln(w)
				}
				for _, s := range res.Services {
					serviceTable(w, s)
					fmt.Fprintln(w)
				}
			})
		},
	}
}

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve reflection over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireSource(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := server.New(ctx, a.cfg.Source, source.Load, a.log)
			if err != nil {
				return err
			}

			if a.cfg.Server.Watch {
				if err = s.Watch(ctx); err != nil {
					return err
				}
			}

			return s.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().Bool("watch", true, "reload the registry when the source changes")
	_ = a.v.BindPFlag(config.KeyServerAddr, cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag(config.KeyServerWatch, cmd.Flags().Lookup("watch"))

	return cmd
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			return render(cmd.OutOrStdout(), a.cfg.Format, info, func(w io.Writer) {
				t := newTable(w, "VERSION", "COMMIT", "BUILT", "GO")
				t.addRow(info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
				t.render()
			})
		},
	}
}
