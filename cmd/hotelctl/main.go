// Command hotelctl is a terminal client for the hotel booking API. The
// session lives in a file so consecutive invocations stay logged in.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/config"
	"github.com/diagnosis/hotel-web/pkg/events"
	"github.com/diagnosis/hotel-web/pkg/guard"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/logger"
	"github.com/diagnosis/hotel-web/pkg/session"
	"github.com/diagnosis/hotel-web/pkg/views"
)

// errFailed marks a command whose failure was already reported as a
// notification.
var errFailed = errors.New("command failed")

type app struct {
	client    *hotelapi.Client
	store     session.Store
	ctl       *authctl.Controller
	inbox     *views.Inbox
	publisher events.Publisher
	out       io.Writer
	errOut    io.Writer
	json      bool
}

// command.path is the gateway page the command mirrors; the route guard
// decides on it before anything is sent to the backend.
type command struct {
	summary string
	path    string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"log in and store the session", "", cmdLogin},
	"register":     {"create a customer account", "", cmdRegister},
	"logout":       {"end the stored session", "", cmdLogout},
	"whoami":       {"show the stored session", "", cmdWhoami},
	"rooms":        {"list rooms open for booking", "/rooms", cmdRooms},
	"room":         {"show one room and price a stay", "/rooms", cmdRoom},
	"book":         {"book a room", "", cmdBook},
	"bookings":     {"list your bookings", "/dashboard/bookings", cmdBookings},
	"dashboard":    {"your booking stats and upcoming stays", "/dashboard", cmdDashboard},
	"admin-rooms":  {"list all rooms (admin)", "/admin/rooms", cmdAdminRooms},
	"create-room":  {"add a room (admin)", "/admin/rooms", cmdCreateRoom},
	"update-room":  {"change a room (admin)", "/admin/rooms", cmdUpdateRoom},
	"delete-room":  {"delete a room (admin)", "/admin/rooms", cmdDeleteRoom},
	"reservations": {"list reservations (admin)", "/admin/reservations", cmdReservations},
	"set-status":   {"approve or reject a reservation (admin)", "/admin/reservations", cmdSetStatus},
	"summary":      {"admin dashboard figures (admin)", "/admin", cmdSummary},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "warn"
	}
	logger.SetDefault(logger.New(os.Stderr, logLevel))

	global := flag.NewFlagSet("hotelctl", flag.ExitOnError)
	server := global.String("server", "", "hotel API base URL (default $HOTEL_API_URL)")
	sessionFile := global.String("session", "", "session file (default $HOTEL_SESSION_FILE)")
	asJSON := global.Bool("json", false, "print JSON instead of tables")
	global.Usage = func() { usage(global) }
	global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		usage(global)
		os.Exit(2)
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage(global)
		os.Exit(2)
	}

	baseURL := cfg.API.BaseURL
	if *server != "" {
		baseURL = strings.TrimRight(*server, "/")
	}
	path := cfg.Session.File
	if *sessionFile != "" {
		path = *sessionFile
	}

	publisher, err := events.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Warn("Event publishing disabled", "error", err)
		publisher = events.Nop{}
	}
	defer publisher.Close()

	a := newApp(baseURL, session.NewFileStore(path), publisher, os.Stdout, os.Stderr)
	a.json = *asJSON

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = a.execute(ctx, cmd, args[1:])
	a.flush()
	if err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newApp(baseURL string, store session.Store, publisher events.Publisher, out, errOut io.Writer) *app {
	client := hotelapi.New(baseURL, store)
	ctl := authctl.New(client, store)
	return &app{
		client:    client,
		store:     store,
		ctl:       ctl,
		inbox:     &views.Inbox{},
		publisher: publisher,
		out:       out,
		errOut:    errOut,
	}
}

// execute refuses locally what the gateway's route guard would redirect,
// then runs the command.
func (a *app) execute(ctx context.Context, cmd command, args []string) error {
	if cmd.path != "" {
		st := a.ctl.Load(ctx)
		if d := guard.Evaluate(cmd.path, st); d.Outcome != guard.Allowed {
			return notAllowed(st)
		}
	}
	return cmd.run(ctx, a, args)
}

func notAllowed(st authctl.State) error {
	if st.User == nil {
		return errors.New("not logged in; run: hotelctl login")
	}
	return fmt.Errorf("this command needs an admin account; logged in as %s", st.User.Role)
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "usage: hotelctl [flags] <command> [command flags]\n\ncommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nflags:\n")
	fs.PrintDefaults()
}

// viewOptions sends notifications to the app inbox, printed once the command
// finishes.
func (a *app) viewOptions(ctx context.Context) []views.Option {
	opts := []views.Option{views.WithNotifier(a.inbox), views.WithPublisher(a.publisher)}
	if u := a.ctl.Load(ctx).User; u != nil {
		opts = append(opts, views.WithActor(u.ID))
	}
	return opts
}

func (a *app) flush() {
	for _, n := range a.inbox.Drain() {
		prefix := "ok"
		if n.Level == views.LevelError {
			prefix = "error"
		}
		fmt.Fprintf(a.errOut, "[%s] %s: %s\n", prefix, n.Title, n.Message)
	}
}
