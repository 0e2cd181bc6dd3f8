package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cppla/qforum/config"
	"github.com/cppla/qforum/forum"
	"github.com/cppla/qforum/models"
	"github.com/cppla/qforum/store/localstore"
	"github.com/cppla/qforum/utils"
)

// localApp is one opened local store plus the identity of its session.
type localApp struct {
	store    *localstore.Store
	auth     *forum.AuthService
	forum    *forum.Service
	identity forum.Identity
	out      io.Writer
}

type localOptions struct {
	storePath string
}

// openLocal opens the store, seeds it on first run and verifies the saved session.
func openLocal(ctx context.Context, out io.Writer, opts *localOptions) (*localApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	path := opts.storePath
	if path == "" {
		path = cfg.LocalStorePath
	}

	store, err := localstore.Open(localstore.Options{Path: path})
	if err != nil {
		return nil, err
	}
	app, err := newLocalApp(ctx, store, cfg, out)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

func newLocalApp(ctx context.Context, store *localstore.Store, cfg config.AppConfig, out io.Writer) (*localApp, error) {
	secret, err := store.Secret()
	if err != nil {
		return nil, err
	}
	tokens := utils.NewTokenManager(secret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	app := &localApp{
		store: store,
		auth:  forum.NewAuthService(store, tokens),
		forum: forum.NewService(store),
		out:   out,
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats == (forum.Stats{}) {
		if err := forum.SeedDemo(ctx, store); err != nil {
			return nil, err
		}
	}

	sess, err := store.Session()
	if err != nil {
		return nil, err
	}
	if sess != nil {
		id, err := app.auth.Verify(sess.Token)
		if err != nil {
			if err := store.ClearSession(); err != nil {
				return nil, err
			}
			fmt.Fprintln(out, styles.Muted.Render("Your session has expired. Please log in again."))
		} else {
			app.identity = id
		}
	}
	return app, nil
}

func (a *localApp) close() error {
	return a.store.Close()
}

func (a *localApp) startSession(s *forum.Session) error {
	return a.store.SetSession(localstore.Session{
		Token:    s.Token,
		UserID:   s.User.ID,
		Username: s.User.Username,
	})
}

func (a *localApp) topicsByID(ctx context.Context) (map[uint]*models.Topic, error) {
	topics, err := a.forum.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Topic, len(topics))
	for i := range topics {
		out[topics[i].ID] = &topics[i]
	}
	return out, nil
}

type localRunFunc func(ctx context.Context, app *localApp, args []string) error

// run opens the store for the duration of one command.
func (o *localOptions) run(fn localRunFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openLocal(cmd.Context(), cmd.OutOrStdout(), o)
		if err != nil {
			return err
		}
		defer func() { _ = app.close() }()
		return fn(cmd.Context(), app, args)
	}
}

func parseIDArg(raw, what string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id == 0 {
		return 0, forum.ValidationError("Invalid " + what + " id")
	}
	return uint(id), nil
}

// changed returns a pointer to value when the flag was given on the command line.
func changed(cmd *cobra.Command, flag, value string) *string {
	if !cmd.Flags().Changed(flag) {
		return nil
	}
	return &value
}

func newLocalCommand() *cobra.Command {
	opts := &localOptions{}
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Use an offline, single-user forum stored on this machine",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			hidden, err := app.store.OnboardingHidden()
			if err != nil {
				return err
			}
			if !hidden {
				renderOnboarding(app.out)
			}
			if !app.identity.Anonymous() {
				fmt.Fprintln(app.out, styles.Muted.Render("Logged in as "+app.identity.Username))
			}
			return listQuestions(ctx, app, forum.QuestionQuery{})
		}),
	}
	cmd.PersistentFlags().StringVar(&opts.storePath, "store", "", "local store directory (default LOCAL_STORE_PATH or ~/.qforum)")

	cmd.AddCommand(
		newRegisterCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newWhoamiCommand(opts),
		newTopicsCommand(opts),
		newQuestionsCommand(opts),
		newAskCommand(opts),
		newShowCommand(opts),
		newEditCommand(opts),
		newRemoveCommand(opts),
		newReplyCommand(opts),
		newEditReplyCommand(opts),
		newRemoveReplyCommand(opts),
		newOnboardingCommand(opts),
	)
	return cmd
}

func newRegisterCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "register USERNAME PASSWORD",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			s, err := app.auth.Register(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if err := app.startSession(s); err != nil {
				return err
			}
			renderSuccess(app.out, "Welcome, "+s.User.Username+"! You are logged in.")
			return nil
		}),
	}
}

func newLoginCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login USERNAME PASSWORD",
		Short: "Log in",
		Args:  cobra.ExactArgs(2),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			s, err := app.auth.Login(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if err := app.startSession(s); err != nil {
				return err
			}
			renderSuccess(app.out, "Logged in as "+s.User.Username+".")
			return nil
		}),
	}
}

func newLogoutCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			if err := app.store.ClearSession(); err != nil {
				return err
			}
			renderSuccess(app.out, "Logged out.")
			return nil
		}),
	}
}

func newWhoamiCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			if app.identity.Anonymous() {
				fmt.Fprintln(app.out, "Not logged in.")
				return nil
			}
			me, err := app.auth.Me(ctx, app.identity)
			if err != nil {
				return err
			}
			fmt.Fprintf(app.out, "Logged in as %s (#%d)\n", me.Username, me.ID)
			return nil
		}),
	}
}

func newTopicsCommand(opts *localOptions) *cobra.Command {
	listRun := opts.run(func(ctx context.Context, app *localApp, args []string) error {
		topics, err := app.forum.ListTopics(ctx)
		if err != nil {
			return err
		}
		renderTopics(app.out, topics)
		return nil
	})

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List and manage topics",
		Args:  cobra.NoArgs,
		RunE:  listRun,
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List topics, newest first",
		Args:  cobra.NoArgs,
		RunE:  listRun,
	}

	var addColor string
	add := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			title := strings.Join(args, " ")
			t, err := app.forum.CreateTopic(ctx, app.identity, forum.TopicInput{Title: &title, Color: &addColor})
			if err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Created topic #%d %s", t.ID, text(t.Title)))
			return nil
		}),
	}
	add.Flags().StringVar(&addColor, "color", models.DefaultTopicColor, "hex colour, e.g. #8aa2ff")

	var editTitle, editColor string
	edit := &cobra.Command{
		Use:   "edit ID",
		Short: "Rename or recolour a topic",
		Args:  cobra.ExactArgs(1),
	}
	edit.RunE = opts.run(func(ctx context.Context, app *localApp, args []string) error {
		id, err := parseIDArg(args[0], "topic")
		if err != nil {
			return err
		}
		in := forum.TopicInput{
			Title: changed(edit, "title", editTitle),
			Color: changed(edit, "color", editColor),
		}
		t, err := app.forum.UpdateTopic(ctx, app.identity, id, in)
		if err != nil {
			return err
		}
		renderSuccess(app.out, fmt.Sprintf("Updated topic #%d %s", t.ID, text(t.Title)))
		return nil
	})
	edit.Flags().StringVar(&editTitle, "title", "", "new title")
	edit.Flags().StringVar(&editColor, "color", "", "new hex colour")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a topic; its questions move to the oldest remaining topic",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "topic")
			if err != nil {
				return err
			}
			if err := app.forum.DeleteTopic(ctx, app.identity, id); err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Deleted topic #%d", id))
			return nil
		}),
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}

func listQuestions(ctx context.Context, app *localApp, query forum.QuestionQuery) error {
	questions, err := app.forum.ListQuestions(ctx, query)
	if err != nil {
		return err
	}
	topics, err := app.topicsByID(ctx)
	if err != nil {
		return err
	}
	renderQuestions(app.out, questions, topics)
	return nil
}

func newQuestionsCommand(opts *localOptions) *cobra.Command {
	var search, topic, sortBy string
	cmd := &cobra.Command{
		Use:     "questions",
		Aliases: []string{"ls"},
		Short:   "List, search and sort questions",
		Args:    cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			order, err := forum.ParseSortOrder(sortBy)
			if err != nil {
				return err
			}
			filter, err := forum.ParseTopicFilter(topic)
			if err != nil {
				return err
			}
			return listQuestions(ctx, app, forum.QuestionQuery{
				Search: strings.TrimSpace(search),
				Topic:  filter,
				Sort:   order,
			})
		}),
	}
	cmd.Flags().StringVar(&search, "q", "", "case-insensitive search in titles and bodies")
	cmd.Flags().StringVar(&topic, "topic", "all", "topic id or all")
	cmd.Flags().StringVar(&sortBy, "sort", "new", "new, old or answers")
	return cmd
}

func newAskCommand(opts *localOptions) *cobra.Command {
	var title, body string
	var topicID uint
	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Ask a question",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run(func(ctx context.Context, app *localApp, args []string) error {
		in := forum.QuestionInput{Title: &title, Body: &body}
		if cmd.Flags().Changed("topic") {
			in.TopicID = &topicID
		}
		q, err := app.forum.CreateQuestion(ctx, app.identity, in)
		if err != nil {
			return err
		}
		renderSuccess(app.out, fmt.Sprintf("Posted question #%d", q.ID))
		return nil
	})
	cmd.Flags().StringVar(&title, "title", "", "question title")
	cmd.Flags().StringVar(&body, "body", "", "question body")
	cmd.Flags().UintVar(&topicID, "topic", 0, "topic id")
	return cmd
}

func newShowCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a question with its replies",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "question")
			if err != nil {
				return err
			}
			q, err := app.forum.GetQuestion(ctx, id)
			if err != nil {
				return err
			}
			topics, err := app.topicsByID(ctx)
			if err != nil {
				return err
			}
			renderQuestion(app.out, q, topics[q.TopicID])
			return nil
		}),
	}
}

func newEditCommand(opts *localOptions) *cobra.Command {
	var title, body string
	var topicID uint
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit your question",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = opts.run(func(ctx context.Context, app *localApp, args []string) error {
		id, err := parseIDArg(args[0], "question")
		if err != nil {
			return err
		}
		in := forum.QuestionInput{
			Title: changed(cmd, "title", title),
			Body:  changed(cmd, "body", body),
		}
		if cmd.Flags().Changed("topic") {
			in.TopicID = &topicID
		}
		q, err := app.forum.UpdateQuestion(ctx, app.identity, id, in)
		if err != nil {
			return err
		}
		renderSuccess(app.out, fmt.Sprintf("Updated question #%d", q.ID))
		return nil
	})
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&body, "body", "", "new body")
	cmd.Flags().UintVar(&topicID, "topic", 0, "new topic id")
	return cmd
}

func newRemoveCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete your question and its replies",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "question")
			if err != nil {
				return err
			}
			if err := app.forum.DeleteQuestion(ctx, app.identity, id); err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Deleted question #%d", id))
			return nil
		}),
	}
}

func newReplyCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reply QUESTION_ID BODY",
		Short: "Reply to a question",
		Args:  cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "question")
			if err != nil {
				return err
			}
			r, err := app.forum.AddReply(ctx, app.identity, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Posted reply #%d", r.ID))
			return nil
		}),
	}
}

func newEditReplyCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit-reply REPLY_ID BODY",
		Short: "Edit your reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "reply")
			if err != nil {
				return err
			}
			body := strings.Join(args[1:], " ")
			r, err := app.forum.UpdateReply(ctx, app.identity, id, &body)
			if err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Updated reply #%d", r.ID))
			return nil
		}),
	}
}

func newRemoveReplyCommand(opts *localOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm-reply REPLY_ID",
		Short: "Delete your reply",
		Args:  cobra.ExactArgs(1),
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			id, err := parseIDArg(args[0], "reply")
			if err != nil {
				return err
			}
			if err := app.forum.DeleteReply(ctx, app.identity, id); err != nil {
				return err
			}
			renderSuccess(app.out, fmt.Sprintf("Deleted reply #%d", id))
			return nil
		}),
	}
}

func newOnboardingCommand(opts *localOptions) *cobra.Command {
	var dismiss, show bool
	cmd := &cobra.Command{
		Use:   "onboarding",
		Short: "Show the welcome guide, or hide it for good with --dismiss",
		Args:  cobra.NoArgs,
		RunE: opts.run(func(ctx context.Context, app *localApp, args []string) error {
			switch {
			case dismiss:
				if err := app.store.SetOnboardingHidden(true); err != nil {
					return err
				}
				renderSuccess(app.out, "Welcome guide hidden.")
			case show:
				if err := app.store.SetOnboardingHidden(false); err != nil {
					return err
				}
				renderOnboarding(app.out)
			default:
				renderOnboarding(app.out)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "stop showing the guide")
	cmd.Flags().BoolVar(&show, "show", false, "show the guide on start again")
	cmd.MarkFlagsMutuallyExclusive("dismiss", "show")
	return cmd
}
