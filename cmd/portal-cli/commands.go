package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/robertmeta/portal-cli/controller"
	"github.com/robertmeta/portal-cli/feed"
	"github.com/robertmeta/portal-cli/model"
	"github.com/robertmeta/portal-cli/opml"
	"github.com/urfave/cli/v2"
)

func login(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewLogin(e.deps())
	out := ctrl.Submit(c.Context, c.String("username"), c.String("password"))
	if out.State == controller.Failed {
		return cli.Exit(out.Notices[len(out.Notices)-1].Message, ExitNotAuthenticated)
	}
	return finish(out, e.session.Snapshot().CurrentUser)
}

func logout(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	out := controller.NewProfile(e.deps()).Logout()
	if out.Err != nil {
		return cli.Exit(out.Err.Error(), ExitDataError)
	}
	return outputJSON(map[string]interface{}{
		"success": true,
		"notices": out.Notices,
	})
}

func showProfile(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewProfile(e.deps())
	out := ctrl.Activate(c.Context)
	return finish(out, map[string]interface{}{
		"user":    ctrl.User(),
		"content": ctrl.Content(),
	})
}

func register(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewRegister(e.deps())
	out := ctrl.Submit(c.Context, model.UserDraft{
		Username: c.String("username"),
		Email:    c.String("email"),
		Name:     c.String("name"),
		Password: c.String("password"),
	})
	if out.State == controller.Redirected {
		return outputJSON(map[string]interface{}{
			"success": true,
			"user":    ctrl.Created(),
			"notices": out.Notices,
		})
	}
	return finish(out, nil)
}

func listUsers(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	users, err := e.users.ListUsers(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get users: %v", err), exitCode(err))
	}
	return outputJSON(users)
}

func showUser(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli users show <user-id>", ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	user, err := e.users.GetUser(c.Context, c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get user: %v", err), exitCode(err))
	}
	return outputJSON(user)
}

func listContent(c *cli.Context) error {
	filters, err := model.BuildContentFilters(
		c.String("search"),
		c.String("category"),
		c.String("tag"),
		c.String("sort-by"),
		c.String("featured"),
		c.String("status"),
	)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Invalid filters: %v", err), ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewContentList(e.deps())
	out := ctrl.Activate(c.Context, filters)
	items := ctrl.Items()
	return finish(out, map[string]interface{}{
		"count":      len(items),
		"filters":    filters.Encode(),
		"items":      items,
		"categories": ctrl.Categories(),
		"tags":       ctrl.Tags(),
	})
}

func showContent(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli content show <content-id>", ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewContentDetail(e.deps())
	out := ctrl.Activate(c.Context, c.Args().Get(0))
	return finish(out, map[string]interface{}{
		"item":   ctrl.Item(),
		"author": ctrl.Author(),
	})
}

// draftFromFlags overlays the flags the user set onto base.
func draftFromFlags(c *cli.Context, base model.ContentDraft) model.ContentDraft {
	d := base
	if c.IsSet("title") {
		d.Title = c.String("title")
	}
	if c.IsSet("content") {
		d.Content = c.String("content")
	}
	if c.IsSet("category") {
		d.Category = c.String("category")
	}
	if c.IsSet("tags") {
		d.Tags = model.ParseTags(c.String("tags"))
	}
	if c.IsSet("status") {
		d.Status = c.String("status")
	}
	if c.IsSet("featured") {
		d.Featured = c.Bool("featured")
	}
	return d
}

// openList activates the content list, the screen every mutation runs on.
func openList(c *cli.Context, e *env) (*controller.ContentList, error) {
	ctrl := controller.NewContentList(e.deps())
	out := ctrl.Activate(c.Context, model.ContentFilters{})
	if out.State != controller.Ready {
		return nil, finish(out, nil)
	}
	return ctrl, nil
}

func createContent(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := openList(c, e)
	if err != nil {
		return err
	}

	form := draftFromFlags(c, model.ContentDraft{Tags: []string{}, Status: model.StatusDraft})
	out := ctrl.Submit(c.Context, form)
	items := ctrl.Items()
	return finish(out, map[string]interface{}{
		"count": len(items),
		"items": items,
	})
}

func updateContent(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli content update <content-id>", ExitUsageError)
	}
	id := c.Args().Get(0)

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := openList(c, e)
	if err != nil {
		return err
	}

	var target *model.ContentItem
	for _, item := range ctrl.Items() {
		if item.ID == id {
			item := item
			target = &item
			break
		}
	}
	if target == nil {
		return cli.Exit("Content not found", ExitDataError)
	}

	ctrl.Edit(*target)
	out := ctrl.Submit(c.Context, draftFromFlags(c, target.Draft()))
	return finish(out, map[string]interface{}{
		"items": ctrl.Items(),
	})
}

func deleteContent(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli content delete <content-id>", ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := openList(c, e)
	if err != nil {
		return err
	}

	confirm := promptConfirm(os.Stdin, os.Stderr)
	if c.Bool("yes") {
		confirm = func(string) bool { return true }
	}

	out := ctrl.Delete(c.Context, c.Args().Get(0), confirm)
	if out.Err == nil && len(out.Notices) == 0 {
		return outputJSON(map[string]interface{}{
			"success": false,
			"message": "Deletion cancelled",
		})
	}
	return finish(out, map[string]interface{}{
		"count": len(ctrl.Items()),
	})
}

// promptConfirm asks on out and reads a y/n answer from in.
func promptConfirm(in io.Reader, out io.Writer) controller.Confirm {
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}

func likeContent(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli content like <content-id>", ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewContentDetail(e.deps())
	out := ctrl.Activate(c.Context, c.Args().Get(0))
	if out.State == controller.Ready {
		out = ctrl.Like(c.Context)
	}
	return finish(out, ctrl.Item())
}

func listCategories(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	categories, err := e.data.ListCategories(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get categories: %v", err), exitCode(err))
	}
	return outputJSON(categories)
}

func listTags(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	tags, err := e.data.ListTags(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get tags: %v", err), exitCode(err))
	}
	return outputJSON(tags)
}

func showDashboard(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl := controller.NewDashboard(e.deps())
	out := ctrl.Activate(c.Context)
	return finish(out, map[string]interface{}{
		"summary":   ctrl.Summary(),
		"analytics": ctrl.Analytics(),
	})
}

func openPath(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli open <path>", ExitUsageError)
	}

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	r := e.router()
	defer r.Close()

	res, err := r.Navigate(c.Context, c.Args().Get(0))
	if err != nil {
		return cli.Exit(err.Error(), ExitUsageError)
	}

	return outputJSON(map[string]interface{}{
		"path":    res.Path,
		"route":   res.Route,
		"hops":    res.Hops,
		"outcome": res.Outcome,
		"view":    viewData(res.View),
	})
}

// viewData renders what a screen shows.
func viewData(view interface{}) interface{} {
	switch v := view.(type) {
	case *controller.Dashboard:
		return map[string]interface{}{"summary": v.Summary(), "analytics": v.Analytics()}
	case *controller.ContentList:
		return map[string]interface{}{"items": v.Items(), "categories": v.Categories(), "tags": v.Tags()}
	case *controller.ContentDetail:
		return map[string]interface{}{"item": v.Item(), "author": v.Author()}
	case *controller.Profile:
		return map[string]interface{}{"user": v.User(), "content": v.Content()}
	case *controller.Login, *controller.Register:
		return nil
	default:
		return v
	}
}

// importer builds a feed importer posting as the logged in user.
func (e *env) importer(c *cli.Context) (*feed.Importer, *feed.Fetcher, string, error) {
	if err := e.requireSession(); err != nil {
		return nil, nil, "", err
	}

	user := e.session.CurrentUser()
	if user == nil {
		u, err := e.session.RefreshUser(c.Context)
		if err != nil {
			return nil, nil, "", cli.Exit(fmt.Sprintf("Failed to load current user: %v", err), exitCode(err))
		}
		user = u
	}

	fetcher := feed.NewFetcher(feed.Options{
		Category: c.String("category"),
		Status:   c.String("status"),
		Featured: c.Bool("featured"),
	})
	return feed.NewImporter(e.store, e.data, e.log), fetcher, user.ID, nil
}

func importFeed(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli import-feed <url>", ExitUsageError)
	}
	url := c.Args().Get(0)

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	im, fetcher, authorID, err := e.importer(c)
	if err != nil {
		return err
	}

	src, entries, err := fetcher.Fetch(c.Context, url)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to fetch feed: %v", err), ExitDataError)
	}

	res, err := im.Import(c.Context, *src, entries, authorID)
	if err != nil {
		return cli.Exit(err.Error(), ExitDataError)
	}
	return outputJSON(res)
}

func importOPML(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("Usage: portal-cli import-opml <opml-file>", ExitUsageError)
	}

	file, err := os.Open(c.Args().Get(0))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to open OPML file: %v", err), ExitDataError)
	}
	defer file.Close()

	subs, err := opml.Parse(file)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to parse OPML: %v", err), ExitDataError)
	}
	subs = opml.Unique(subs)

	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	im, _, authorID, err := e.importer(c)
	if err != nil {
		return err
	}

	results := make(map[string]interface{})
	created := 0

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, 8)

	for _, sub := range subs {
		wg.Add(1)
		go func(sub opml.Subscription) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			category := c.String("category")
			if category == "" {
				category = sub.Category
			}
			fetcher := feed.NewFetcher(feed.Options{
				Category: category,
				Status:   c.String("status"),
				Featured: c.Bool("featured"),
			})

			src, entries, err := fetcher.Fetch(c.Context, sub.URL)
			if err != nil {
				mu.Lock()
				results[sub.URL] = map[string]interface{}{"error": err.Error()}
				mu.Unlock()
				return
			}

			res, err := im.Import(c.Context, *src, entries, authorID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[sub.URL] = map[string]interface{}{"error": err.Error()}
				return
			}
			created += len(res.Created)
			results[sub.URL] = res
		}(sub)
	}

	wg.Wait()

	return outputJSON(map[string]interface{}{
		"feeds":   len(subs),
		"created": created,
		"results": results,
	})
}

func listImports(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	items, err := e.store.ImportedItems(c.String("feed"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to get imports: %v", err), ExitDataError)
	}
	return outputJSON(map[string]interface{}{
		"count":   len(items),
		"imports": items,
	})
}

func exportOPML(c *cli.Context) error {
	e, err := openEnv(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctrl, err := openList(c, e)
	if err != nil {
		return err
	}
	items := ctrl.Items()

	outputPath := c.String("output")
	var writer io.Writer = os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to create output file: %v", err), ExitDataError)
		}
		defer file.Close()
		writer = file
	}

	if err := opml.Generate(writer, items, opml.Export{LinkBase: e.cfg.DataServiceURL}); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to generate OPML: %v", err), ExitDataError)
	}

	if outputPath != "" {
		return outputJSON(map[string]interface{}{
			"success": true,
			"file":    outputPath,
			"count":   len(items),
		})
	}
	return nil
}
