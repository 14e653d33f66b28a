// Package cli is the command line surface: one cobra command per user action.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/PWRApex/english-prep-companion/apps/di"
	"github.com/PWRApex/english-prep-companion/core"
	notifysvc "github.com/PWRApex/english-prep-companion/services/notify"
)

var readPasswordFunc = term.ReadPassword // mockable

// app carries the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	opts    di.Options
	conf    *core.Config
	c       *di.Container
	cfgFile string
}

// newRoot builds the command tree. `opts` is handed to the container. The caller must tearDown the app.
func newRoot(opts di.Options) (*cobra.Command, *app) {
	a := &app{v: viper.New(), opts: opts}

	root := &cobra.Command{
		Use:           "englishprep",
		Short:         "Track English course exams, assignments, attendance and vocabulary",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setUp(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	root.PersistentFlags().String("backend", "", "data backend: rest, sql or memory")
	_ = a.v.BindPFlag("backend", root.PersistentFlags().Lookup("backend"))

	root.AddCommand(
		a.signInCmd(),
		a.signUpCmd(),
		a.signOutCmd(),
		a.resetPasswordCmd(),
		a.recoverCmd(),
		a.updatePasswordCmd(),
		a.whoAmICmd(),
		a.dashboardCmd(),
		a.examsCmd(),
		a.assignmentsCmd(),
		a.attendanceCmd(),
		a.tracksCmd(),
		a.profileCmd(),
		a.migrateCmd(),
		a.serveCmd(),
	)
	return root, a
}

// Execute runs the CLI with the process arguments and exits non-zero on failure.
func Execute() {
	root, a := newRoot(di.Options{})
	err := root.Execute()
	if cerr := a.tearDown(); err == nil {
		err = cerr
	}
	if err != nil {
		_, _ = fmt.Fprintln(root.ErrOrStderr(), "error:", core.Message(err))
		os.Exit(1)
	}
}

func (a *app) setUp(cmd *cobra.Command) error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading %s", a.cfgFile)
		}
	}
	conf, err := core.NewConfig(a.v)
	if err != nil {
		return err
	}
	a.conf = conf

	opts := a.opts
	if opts.Notifier == nil {
		opts.Notifier = notifysvc.NewWriter(cmd.ErrOrStderr())
	}
	if opts.LogOutput == nil {
		opts.LogOutput = cmd.ErrOrStderr()
	}
	c, err := di.New(conf, opts)
	if err != nil {
		return err
	}
	a.c = c
	return c.Init(cmd.Context())
}

func (a *app) tearDown() error {
	if a.c == nil {
		return nil
	}
	err := a.c.Close()
	a.c = nil
	return err
}

// requireUser fails early for commands that only make sense signed in.
func (a *app) requireUser() (core.User, error) {
	usr, ok := a.c.Session.User()
	if !ok {
		return core.User{}, errors.New("not signed in: run `englishprep signin` first")
	}
	return usr, nil
}

// password returns the flag value, prompting for it when empty.
func password(cmd *cobra.Command, flag, prompt string) (string, error) {
	pwd, _ := cmd.Flags().GetString(flag)
	if pwd != "" {
		return pwd, nil
	}
	_, _ = fmt.Fprint(cmd.OutOrStdout(), prompt+": ")
	b, err := readPasswordFunc(int(os.Stdin.Fd()))
	_, _ = fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", errors.Wrap(err, "reading password")
	}
	return string(b), nil
}

func printf(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
