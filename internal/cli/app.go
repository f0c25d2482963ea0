package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/clientdesk/portal/internal/core/domain"
	"github.com/clientdesk/portal/internal/core/ports"
	"github.com/clientdesk/portal/internal/session"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// App runs portal commands against a session manager.
type App struct {
	manager   *session.Manager
	directory ports.Directory
	in        io.Reader
	out       io.Writer
	buf       *bufio.Reader
}

func NewApp(manager *session.Manager, directory ports.Directory, in io.Reader, out io.Writer) *App {
	return &App{manager: manager, directory: directory, in: in, out: out}
}

// Notifier prints session notifications to w.
func Notifier(w io.Writer) session.Notifier {
	return session.NotifierFunc(func(n session.Notification) {
		prefix := "✓"
		if n.Level == session.LevelError {
			prefix = "✗"
		}
		fmt.Fprintf(w, "%s %s: %s\n", prefix, n.Title, n.Description)
	})
}

// Run waits for the persisted session to load, then executes args.
func (a *App) Run(ctx context.Context, args []string) error {
	select {
	case <-a.manager.Initialize(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}

	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "signup", "register":
		return a.signup(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		a.manager.Logout(ctx)
		return nil
	case "whoami":
		return a.whoami()
	case "profile":
		return a.profile(ctx, rest)
	case "clients":
		return a.clients(ctx, rest)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		fmt.Fprintln(a.out, "Unknown command:", cmd)
		a.usage()
		return ErrUsage
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: portal <command> [flags]")
	fmt.Fprintln(a.out, "Commands: signup, login, logout, whoami, profile, clients, help")
}

func (a *App) signup(ctx context.Context, args []string) error {
	fs := a.flagSet("signup")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *name == "" || *email == "" {
		return fmt.Errorf("%w: signup requires -name and -email", ErrUsage)
	}

	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	_, err = a.manager.Signup(ctx, *name, *email, password)
	return err
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flagSet("login")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if *email == "" {
		return fmt.Errorf("%w: login requires -email", ErrUsage)
	}

	password, err := a.promptPassword()
	if err != nil {
		return err
	}

	_, err = a.manager.Login(ctx, *email, password)
	return err
}

func (a *App) whoami() error {
	snap := a.manager.Snapshot()
	if !snap.Authenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return domain.ErrNotAuthenticated
	}
	printUser(a.out, snap.User)
	return nil
}

func (a *App) profile(ctx context.Context, args []string) error {
	fs := a.flagSet("profile")
	var update domain.ProfileUpdate
	fs.Func("name", "full name", stringInto(&update.Name))
	fs.Func("phone", "phone number", stringInto(&update.Phone))
	fs.Func("address", "postal address", stringInto(&update.Address))
	fs.Func("profession", "profession", stringInto(&update.Profession))
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if update.Empty() {
		return fmt.Errorf("%w: profile needs at least one field flag", ErrUsage)
	}

	user, err := a.manager.UpdateProfile(ctx, update)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			fmt.Fprintln(a.out, "Not signed in.")
		}
		return err
	}
	printUser(a.out, user)
	return nil
}

func (a *App) clients(ctx context.Context, args []string) error {
	if !a.manager.Snapshot().Authenticated() {
		fmt.Fprintln(a.out, "Not signed in.")
		return domain.ErrNotAuthenticated
	}

	clients := domain.FilterClients(a.directory.List(ctx), strings.Join(args, " "))
	if len(clients) == 0 {
		fmt.Fprintln(a.out, "No clients found.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEMAIL\tPHONE\tCOMPANY")
	for _, c := range clients {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Name, c.Email, c.Phone, c.Company)
	}
	return tw.Flush()
}

func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func stringInto(dst **string) func(string) error {
	return func(v string) error {
		*dst = &v
		return nil
	}
}

func printUser(w io.Writer, u *domain.User) {
	fmt.Fprintf(w, "Name:       %s\n", u.Name)
	fmt.Fprintf(w, "Email:      %s\n", u.Email)
	fmt.Fprintf(w, "Phone:      %s\n", u.Phone)
	fmt.Fprintf(w, "Address:    %s\n", u.Address)
	fmt.Fprintf(w, "Profession: %s\n", u.Profession)
}
