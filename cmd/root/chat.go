package root

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/LucasSabena/codemobile-sub001/pkg/doctree"
	"github.com/LucasSabena/codemobile-sub001/pkg/model/provider/options"
	"github.com/LucasSabena/codemobile-sub001/pkg/runtime"
	"github.com/LucasSabena/codemobile-sub001/pkg/session"
	"github.com/LucasSabena/codemobile-sub001/pkg/tools/builtin"
)

const maxTitleLength = 60

type chatFlags struct {
	providerID string
	model      string
	project    string
	sessionID  string
	build      bool
}

func newChatCmd() *cobra.Command {
	var flags chatFlags

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with a model",
		Long: `Send a message to a model and stream its reply. Without a message, read
messages from standard input, one per line.

In build mode the model may read, write, search and delete files in the
project and run shell commands there. The project is a directory or a
tree://<name> document tree declared in the config file.`,
		Example: `  codemobile chat "what is a goroutine?"
  codemobile chat --build --project ./app "fix the failing test"
  codemobile chat --session 3f2a... "and now add docs"`,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return flags.run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&flags.providerID, "provider", "p", "", "Provider id (see `codemobile models`)")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Model id; defaults to the provider's first model")
	cmd.Flags().StringVar(&flags.project, "project", ".", "Project directory or tree://<name> the tools work on")
	cmd.Flags().StringVarP(&flags.sessionID, "session", "s", "", "Continue a stored session")
	cmd.Flags().BoolVarP(&flags.build, "build", "b", false, "Let the model use tools on the project")

	return cmd
}

func (f *chatFlags) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := loadApp()
	if err != nil {
		return err
	}

	store, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sess, err := f.session(ctx, a, store, strings.Join(args, " "))
	if err != nil {
		return err
	}

	p := a.factory.CreateOrNilWithRefresh(ctx, a.providerConfig(sess.ProviderID, sess.Model))
	if p == nil {
		// Create again for the descriptive error.
		if p, err = a.factory.Create(ctx, a.providerConfig(sess.ProviderID, sess.Model)); err != nil {
			return err
		}
	}

	executor, err := builtin.NewExecutor(sess.ProjectRoot,
		builtin.WithLimits(a.cfg.Limits),
		builtin.WithTrees(a.trees()...),
	)
	if err != nil {
		return err
	}

	rt := runtime.New(p, executor, store,
		runtime.WithLimits(a.cfg.Limits),
		runtime.WithGeneration(options.FromConfig(a.cfg.Generation)...),
	)
	out := &printer{out: cmd.OutOrStdout()}

	if len(args) > 0 {
		f.send(ctx, rt, out, sess, strings.Join(args, " "))
	} else {
		in := cmd.InOrStdin()
		prompt := isTerminal(in)
		scanner := bufio.NewScanner(in)
		for ctx.Err() == nil {
			if prompt {
				fmt.Fprint(cmd.OutOrStdout(), bold("> "))
			}
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			f.send(ctx, rt, out, sess, line)
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), faint("session %s", sess.ID))
	return nil
}

func (f *chatFlags) send(ctx context.Context, rt *runtime.Runtime, out *printer, sess *session.Session, message string) {
	for ev := range rt.RunStream(ctx, sess, message) {
		out.printEvent(ev)
	}
}

// session loads the session to continue or creates a new one. Flags given
// on the command line override what a stored session recorded.
func (f *chatFlags) session(ctx context.Context, a *app, store session.Store, firstMessage string) (*session.Session, error) {
	if f.sessionID != "" {
		sess, err := store.GetSession(ctx, f.sessionID)
		if err != nil {
			return nil, fmt.Errorf("loading session %s: %w", f.sessionID, err)
		}
		if f.providerID != "" {
			sess.ProviderID = f.providerID
		}
		sess.Model = cmp.Or(f.model, sess.Model)
		if f.build {
			sess.Mode = session.ModeBuild
		}
		return sess, nil
	}

	providerID, err := a.providerID(f.providerID)
	if err != nil {
		return nil, err
	}
	model, err := a.model(providerID, f.model)
	if err != nil {
		return nil, err
	}
	root, err := projectRoot(f.project)
	if err != nil {
		return nil, err
	}

	mode := session.ModeChat
	if f.build {
		mode = session.ModeBuild
	}
	sess := session.New(
		session.WithModel(providerID, model),
		session.WithMode(mode),
		session.WithProjectRoot(root),
		session.WithTitle(title(firstMessage)),
	)
	if err := store.AddSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func projectRoot(project string) (string, error) {
	if strings.HasPrefix(project, builtin.TreeScheme) {
		return project, nil
	}
	abs, err := filepath.Abs(project)
	if err != nil {
		return "", fmt.Errorf("invalid project directory: %w", err)
	}
	return abs, nil
}

func title(message string) string {
	message = strings.Join(strings.Fields(message), " ")
	runes := []rune(message)
	if len(runes) <= maxTitleLength {
		return message
	}
	return string(runes[:maxTitleLength]) + "..."
}

func (a *app) trees() []*doctree.Tree {
	var trees []*doctree.Tree
	for name, dir := range a.cfg.Trees {
		trees = append(trees, doctree.NewOS(name, dir))
	}
	return trees
}

