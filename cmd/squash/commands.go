package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"squashfeature/internal/adminauth"
	"squashfeature/internal/dashboard"
	"squashfeature/internal/models"
	"squashfeature/internal/widget"
)

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

func subFlags(name string, e env) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stdout)
	return fs
}

func runSubmit(ctx context.Context, e env, args []string) error {
	fs := subFlags("submit", e)
	typ := fs.String("type", string(models.TypeFeature), "feature or bug")
	title := fs.String("title", "", "short summary")
	description := fs.String("description", "", "details")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := e.clientConfig()
	if err != nil {
		return err
	}

	w := widget.New(newClient(cfg), cfg.ProjectID, widget.WithOrigin(cfg.Origin))
	w.Open()
	defer w.Close()

	if err := w.SetType(models.FeedbackType(*typ)); err != nil {
		return err
	}
	_ = w.SetTitle(*title)
	_ = w.SetDescription(*description)

	if err := w.Submit(ctx); err != nil {
		if errors.Is(err, widget.ErrTitleRequired) || errors.Is(err, widget.ErrDescriptionRequired) {
			return err
		}
		return errors.New(w.Err())
	}
	fmt.Fprintln(e.stdout, w.Message())
	return nil
}

func runDashboard(ctx context.Context, e env, args []string) error {
	fs := subFlags("dashboard", e)
	filter := fs.String("filter", string(dashboard.FilterAll), "all, feature or bug")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := dashboard.ParseFilter(*filter)
	if err != nil {
		return err
	}

	d, err := mountDashboard(ctx, e)
	if err != nil {
		return err
	}
	_ = d.SetFilter(f)

	c := d.Counts()
	fmt.Fprintf(e.stdout, "%s  (all %d, features %d, bugs %d)\n\n", d.Project().Name, c.All, c.Feature, c.Bug)

	items := d.Visible()
	if len(items) == 0 {
		fmt.Fprintln(e.stdout, "No feedback yet.")
		return nil
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tVOTES\tSTATUS\tTITLE")
	for _, it := range items {
		votes := fmt.Sprint(it.Votes)
		if d.HasVoted(it.ID) {
			votes += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Type, votes, it.Status, it.Title)
	}
	return tw.Flush()
}

func runVote(ctx context.Context, e env, args []string) error {
	fs := subFlags("vote", e)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stdout, "usage: squash vote <id>")
		return errUsage
	}
	id := fs.Arg(0)

	d, err := mountDashboard(ctx, e)
	if err != nil {
		return err
	}
	if d.HasVoted(id) {
		fmt.Fprintln(e.stdout, "You already voted for this item.")
		return nil
	}

	if err := d.Vote(ctx, id); err != nil {
		if msg := d.VoteErr(); msg != "" {
			return errors.New(msg)
		}
		return err
	}
	for _, it := range d.Visible() {
		if it.ID == id {
			fmt.Fprintf(e.stdout, "Voted for %q (%d votes)\n", it.Title, it.Votes)
		}
	}
	return nil
}

func mountDashboard(ctx context.Context, e env) (*dashboard.Dashboard, error) {
	cfg, err := e.clientConfig()
	if err != nil {
		return nil, err
	}
	store, err := ledgerStore(cfg)
	if err != nil {
		return nil, err
	}

	d := dashboard.New(newClient(cfg), store, cfg.ProjectID)
	if err := d.Mount(ctx); err != nil {
		return nil, errors.New(d.Err())
	}
	return d, nil
}

func runAdminToken(e env, args []string) error {
	fs := subFlags("admin-token", e)
	subject := fs.String("subject", "", "operator the token is issued to")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*subject) == "" {
		fmt.Fprintln(e.stdout, "usage: squash admin-token -subject S [-ttl 24h]")
		return errUsage
	}

	secret := e.getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		return errors.New("ADMIN_JWT_SECRET is not set")
	}
	token, err := adminauth.IssueToken(secret, *subject, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, token)
	return nil
}
