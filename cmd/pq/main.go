// Command pq is a CLI client for the playqueue service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/auth"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	dial    dialOptions
	timeout time.Duration
	asJSON  bool

	// connect opens an authenticated client; replaced in tests.
	connect func(ctx context.Context) (queuev1.QueueClient, func(), error)
}

func (o *rootOptions) client(cmd *cobra.Command) (context.Context, queuev1.QueueClient, func(), error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	cl, closeFn, err := o.connect(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return ctx, cl, func() { closeFn(); cancel() }, nil
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	if opts.connect == nil {
		opts.connect = func(ctx context.Context) (queuev1.QueueClient, func(), error) {
			tok, err := loadToken()
			if err != nil {
				return nil, nil, err
			}
			return dial(ctx, opts.dial, tok)
		}
	}

	cmd := &cobra.Command{
		Use:           "pq",
		Short:         "pq - playqueue client",
		Long:          "Manage your ordered play queue on a playqueue server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.dial.addr, "addr", "localhost:8443", "server addr")
	cmd.PersistentFlags().StringVar(&opts.dial.caPath, "cacert", "", "CA cert (PEM)")
	cmd.PersistentFlags().BoolVar(&opts.dial.insecure, "insecure", false, "skip cert verify (dev)")
	cmd.PersistentFlags().BoolVar(&opts.dial.plaintext, "plaintext", false, "no TLS (dev)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "per command timeout")
	cmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "print JSON")

	cmd.AddCommand(
		newVersionCommand(),
		newTokenCommand(),
		newListCommand(opts),
		newShowCommand(opts),
		newAddCommand(opts),
		newMoveCommand(opts),
		newDoneCommand(opts),
		newRemoveCommand(opts),
		newResortCommand(opts),
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the client version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pq %s (%s)\n", version, buildDate)
		},
	}
}

func newTokenCommand() *cobra.Command {
	var (
		key   string
		owner string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and save an access token for an owner",
		Long:  "Signs a token with the server's shared key. Meant for development and operators.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				return errors.New("need --key")
			}
			id := uuid.Must(uuid.NewV4())
			if owner != "" {
				var err error
				if id, err = uuid.FromString(owner); err != nil {
					return fmt.Errorf("bad --owner: %w", err)
				}
			}
			tok, exp, err := auth.Issue([]byte(key), id, ttl, time.Now())
			if err != nil {
				return err
			}
			if err := saveToken(tok, exp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ token for owner %s saved (expires %s)\n", id, exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", os.Getenv("PLAYQUEUE_JWT_KEY"), "HS256 signing key")
	cmd.Flags().StringVar(&owner, "owner", "", "owner id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	req := &queuev1.ListItemsRequest{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items in queue order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cl, done, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer done()
			out, err := cl.ListItems(ctx, req)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), out)
			}
			printItems(cmd.OutOrStdout(), out.Items, &out.Meta)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&req.Statuses, "status", nil, "filter by status (unplayed|active|completed)")
	cmd.Flags().StringSliceVar(&req.Sources, "source", nil, "filter by source")
	cmd.Flags().StringSliceVar(&req.Identifiers, "identifier", nil, "filter by identifier")
	cmd.Flags().StringVar(&req.AfterID, "after", "", "only items after this id")
	cmd.Flags().Int32Var(&req.Page, "page", 0, "page number")
	cmd.Flags().Int32Var(&req.PageSize, "size", 0, "page size")
	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cl, done, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer done()
			out, err := cl.GetItem(ctx, &queuev1.GetItemRequest{ID: args[0]})
			if err != nil {
				return err
			}
			return emitItem(cmd, opts, out.Item)
		},
	}
}

// placementFlags binds the mutually exclusive ordering flags.
type placementFlags struct {
	after string
	first bool
	last  bool
}

func (p *placementFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.after, "after", "", "place after this item id")
	cmd.Flags().BoolVar(&p.first, "first", false, "place at the front")
	cmd.Flags().BoolVar(&p.last, "last", false, "place at the end")
	cmd.MarkFlagsMutuallyExclusive("after", "first", "last")
}

func (p *placementFlags) placement() *queuev1.Placement {
	switch {
	case p.after != "":
		return &queuev1.Placement{Kind: queuev1.PlaceAfter, AfterID: p.after}
	case p.first:
		return &queuev1.Placement{Kind: queuev1.PlaceFirst}
	case p.last:
		return &queuev1.Placement{Kind: queuev1.PlaceAppend}
	}
	return nil
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var (
		f        queuev1.ItemFields
		place    placementFlags
		ident    string
		title    string
		url      string
		source   string
		playtime int32
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item, or update the one with the same identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fl := cmd.Flags()
			f.Identifier = &ident
			if fl.Changed("title") {
				f.Title = &title
			}
			if fl.Changed("url") {
				f.URL = &url
			}
			if fl.Changed("source") {
				f.Source = &source
			}
			if fl.Changed("playtime") {
				f.Playtime = &playtime
			}
			f.Placement = place.placement()

			ctx, cl, done, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer done()
			out, err := cl.CreateItem(ctx, &queuev1.CreateItemRequest{Item: f})
			if err != nil {
				return err
			}
			return emitItem(cmd, opts, out.Item)
		},
	}
	cmd.Flags().StringVar(&ident, "identifier", "", "unique identifier")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&url, "url", "", "media url")
	cmd.Flags().StringVar(&source, "source", "", "source feed")
	cmd.Flags().Int32Var(&playtime, "playtime", 0, "playtime in seconds")
	_ = cmd.MarkFlagRequired("identifier")
	place.bind(cmd)
	return cmd
}

func newMoveCommand(opts *rootOptions) *cobra.Command {
	var place placementFlags
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move an item in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := place.placement()
			if p == nil {
				return errors.New("need one of --after, --first, --last")
			}
			return update(cmd, opts, args[0], queuev1.ItemFields{Placement: p})
		},
	}
	place.bind(cmd)
	return cmd
}

func newDoneCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark an item completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := "completed"
			return update(cmd, opts, args[0], queuev1.ItemFields{Status: &st})
		},
	}
}

func update(cmd *cobra.Command, opts *rootOptions, id string, f queuev1.ItemFields) error {
	ctx, cl, done, err := opts.client(cmd)
	if err != nil {
		return err
	}
	defer done()
	out, err := cl.UpdateItem(ctx, &queuev1.UpdateItemRequest{ID: id, Item: f})
	if err != nil {
		return err
	}
	return emitItem(cmd, opts, out.Item)
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cl, done, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer done()
			if _, err := cl.DeleteItem(ctx, &queuev1.DeleteItemRequest{ID: args[0]}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ removed %s\n", args[0])
			return nil
		},
	}
}

func newResortCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resort",
		Short: "Renumber the queue to evenly spaced positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cl, done, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer done()
			out, err := cl.Resort(ctx, &queuev1.ResortRequest{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ resorted, %d items moved\n", out.Moved)
			return nil
		},
	}
}

func emitItem(cmd *cobra.Command, opts *rootOptions, it *queuev1.Item) error {
	if opts.asJSON {
		return printJSON(cmd.OutOrStdout(), it)
	}
	printItem(cmd.OutOrStdout(), it)
	return nil
}

// fail prints the server message of err and exits.
func fail(err error) {
	if st, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", st.Code(), st.Message())
	} else {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(1)
}

func main() {
	if err := newRootCommand(&rootOptions{}).ExecuteContext(context.Background()); err != nil {
		fail(err)
	}
}
