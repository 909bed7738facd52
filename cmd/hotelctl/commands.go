package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/diagnosis/hotel-web/internal/utils"
	"github.com/diagnosis/hotel-web/pkg/auth"
	"github.com/diagnosis/hotel-web/pkg/authctl"
	"github.com/diagnosis/hotel-web/pkg/hotelapi"
	"github.com/diagnosis/hotel-web/pkg/views"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("HOTEL_PASSWORD"), "password (default $HOTEL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("--email and --password are required")
	}

	user, err := a.ctl.Login(ctx, *email, *password)
	if err != nil {
		var authErr *authctl.AuthError
		if errors.As(err, &authErr) {
			return errors.New(authErr.Message)
		}
		return err
	}
	return a.print(user, func() {
		fmt.Fprintf(a.out, "Logged in as %s (%s). Home: %s\n", displayName(user), user.Role, authctl.RoleHome(user.Role))
	})
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := a.flags("register")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("HOTEL_PASSWORD"), "password (default $HOTEL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" || *password == "" {
		return errors.New("--name, --email and --password are required")
	}

	user, err := a.ctl.Register(ctx, *name, *email, *password)
	if err != nil {
		var authErr *authctl.AuthError
		if errors.As(err, &authErr) {
			return errors.New(authErr.Message)
		}
		return err
	}
	return a.print(user, func() {
		fmt.Fprintln(a.out, "Account created. Log in with: hotelctl login --email", *email)
	})
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	a.ctl.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

type whoami struct {
	User      *hotelapi.User `json:"user"`
	ExpiresAt *time.Time     `json:"expiresAt,omitempty"`
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	st := a.ctl.Load(ctx)
	out := whoami{User: st.User}
	if s, ok := a.store.Get(ctx); ok {
		if exp := auth.ExpiresAt(s.Token); !exp.IsZero() {
			out.ExpiresAt = &exp
		}
	}
	return a.print(out, func() {
		if st.User == nil {
			fmt.Fprintln(a.out, "Not logged in.")
			return
		}
		fmt.Fprintf(a.out, "%s (id %s, %s)\n", displayName(st.User), st.User.ID, st.User.Role)
		if out.ExpiresAt != nil {
			fmt.Fprintf(a.out, "Session expires %s\n", out.ExpiresAt.Local().Format(time.RFC1123))
		}
	})
}

func cmdRooms(ctx context.Context, a *app, args []string) error {
	fs := a.flags("rooms")
	page := fs.Int("page", 0, "page number, from 0")
	q := fs.String("q", "", "filter the page by name, description or id")
	checkIn := fs.String("check-in", "", "only rooms free from this date (YYYY-MM-DD)")
	checkOut := fs.String("check-out", "", "only rooms free until this date (YYYY-MM-DD)")
	capacity := fs.Int("capacity", 0, "minimum guests")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := views.NewRoomsView(a.client, a.viewOptions(ctx)...)
	if *checkIn != "" || *checkOut != "" || *capacity > 0 {
		v.Query = &hotelapi.RoomQuery{CheckIn: *checkIn, CheckOut: *checkOut, Capacity: *capacity}
	}
	if !v.Load(ctx, *page) {
		return errFailed
	}
	return a.printRooms(v.Page(), v.Filter(*q))
}

func cmdRoom(ctx context.Context, a *app, args []string) error {
	fs := a.flags("room")
	id := fs.String("id", "", "room id")
	checkIn := fs.String("check-in", "", "price a stay from this date")
	checkOut := fs.String("check-out", "", "price a stay until this date")
	if err := fs.Parse(args); err != nil {
		return err
	}

	room, err := a.client.GetRoom(ctx, *id)
	if err != nil {
		return err
	}
	if room == nil {
		return fmt.Errorf("room %s not found", *id)
	}

	var estimate *float64
	if in, err := hotelapi.ParseDate(*checkIn); err == nil {
		if out, err := hotelapi.ParseDate(*checkOut); err == nil {
			total := views.EstimateTotal(*room, in, out)
			estimate = &total
		}
	}
	return a.print(map[string]interface{}{"room": room, "estimate": estimate}, func() {
		fmt.Fprintf(a.out, "%s  (id %s)\n", room.Name, room.ID)
		if room.Type != "" {
			fmt.Fprintf(a.out, "Type:      %s\n", room.Type)
		}
		if room.Description != "" {
			fmt.Fprintf(a.out, "About:     %s\n", room.Description)
		}
		fmt.Fprintf(a.out, "Price:     %.2f / night\n", room.PricePerNight)
		if room.Capacity > 0 {
			fmt.Fprintf(a.out, "Capacity:  %d\n", room.Capacity)
		}
		if len(room.Amenities) > 0 {
			fmt.Fprintf(a.out, "Amenities: %s\n", strings.Join(room.Amenities, ", "))
		}
		fmt.Fprintf(a.out, "Available: %t\n", room.Available)
		if estimate != nil {
			fmt.Fprintf(a.out, "Stay:      %.2f for %s to %s\n", *estimate, *checkIn, *checkOut)
		}
	})
}

func cmdBook(ctx context.Context, a *app, args []string) error {
	fs := a.flags("book")
	roomID := fs.String("room", "", "room id")
	checkIn := fs.String("check-in", "", "check-in date (YYYY-MM-DD)")
	checkOut := fs.String("check-out", "", "check-out date (YYYY-MM-DD)")
	guests := fs.Int("guests", 1, "number of guests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *roomID == "" {
		return errors.New("--room is required")
	}

	// unparseable dates stay zero and are reported by the view
	in, _ := hotelapi.ParseDate(*checkIn)
	out, _ := hotelapi.ParseDate(*checkOut)

	v := views.NewBookingsView(a.client, a.viewOptions(ctx)...)
	if !v.Book(ctx, hotelapi.BookingRequest{RoomID: *roomID, CheckIn: in, CheckOut: out, Guests: *guests}) {
		return errFailed
	}
	return nil
}

func cmdBookings(ctx context.Context, a *app, args []string) error {
	fs := a.flags("bookings")
	page := fs.Int("page", 0, "page number, from 0")
	q := fs.String("q", "", "filter the page by room name or booking id")
	status := fs.String("status", "", "PENDING, APPROVED or REJECTED")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := parseStatusFlag(*status)
	if err != nil {
		return err
	}

	v := views.NewBookingsView(a.client, a.viewOptions(ctx)...)
	if !v.Load(ctx, *page) {
		return errFailed
	}
	return a.printBookings(v.Page(), v.Filter(*q, st), false)
}

func cmdDashboard(ctx context.Context, a *app, _ []string) error {
	v := views.NewBookingsView(a.client, a.viewOptions(ctx)...)
	if !v.Load(ctx, 0) {
		return errFailed
	}
	stats := v.Stats()
	upcoming := v.Upcoming(time.Now())
	return a.print(map[string]interface{}{"stats": stats, "upcoming": upcoming}, func() {
		fmt.Fprintf(a.out, "Bookings: %s  Approved: %d  Pending: %d  Spent: %.2f\n\n", count(stats.Total, stats.TotalEstimated), stats.Approved, stats.Pending, stats.Spent)
		if len(upcoming) == 0 {
			fmt.Fprintln(a.out, "No upcoming stays.")
			return
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROOM\tCHECK-IN\tCHECK-OUT\tGUESTS")
		for _, b := range upcoming {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", b.Room.Name, b.CheckIn, b.CheckOut, b.Guests)
		}
		tw.Flush()
	})
}

func cmdAdminRooms(ctx context.Context, a *app, args []string) error {
	fs := a.flags("admin-rooms")
	page := fs.Int("page", 0, "page number, from 0")
	q := fs.String("q", "", "filter the page by name, description or id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	v := views.NewAdminRoomsView(a.client, a.viewOptions(ctx)...)
	if !v.Load(ctx, *page) {
		return errFailed
	}
	return a.printRooms(v.Page(), v.Filter(*q))
}

func roomFlags(fs *flag.FlagSet) func() hotelapi.RoomInput {
	name := fs.String("name", "", "room name")
	typ := fs.String("type", "", "room type, e.g. Suite")
	description := fs.String("description", "", "room description")
	price := fs.Float64("price", 0, "price per night")
	capacity := fs.Int("capacity", 1, "maximum guests")
	amenities := fs.String("amenities", "", "comma separated amenities")
	images := fs.String("images", "", "comma separated image URLs")
	unavailable := fs.Bool("unavailable", false, "take the room off the market")
	return func() hotelapi.RoomInput {
		in := hotelapi.RoomInput{
			Name:          *name,
			Type:          *typ,
			Description:   *description,
			PricePerNight: *price,
			Capacity:      *capacity,
			Available:     !*unavailable,
		}
		in.Amenities = utils.SplitList(*amenities)
		in.Images = utils.SplitList(*images)
		return in
	}
}

func cmdCreateRoom(ctx context.Context, a *app, args []string) error {
	fs := a.flags("create-room")
	input := roomFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !views.SaveRoom(ctx, a.client, "", input(), a.viewOptions(ctx)...) {
		return errFailed
	}
	return nil
}

func cmdUpdateRoom(ctx context.Context, a *app, args []string) error {
	fs := a.flags("update-room")
	id := fs.String("id", "", "room id")
	input := roomFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}
	if !views.SaveRoom(ctx, a.client, *id, input(), a.viewOptions(ctx)...) {
		return errFailed
	}
	return nil
}

func cmdDeleteRoom(ctx context.Context, a *app, args []string) error {
	fs := a.flags("delete-room")
	id := fs.String("id", "", "room id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	v := views.NewAdminRoomsView(a.client, a.viewOptions(ctx)...)
	if !v.DeleteRoom(ctx, *id) {
		return errFailed
	}
	return nil
}

func cmdReservations(ctx context.Context, a *app, args []string) error {
	fs := a.flags("reservations")
	page := fs.Int("page", 0, "page number, from 0")
	q := fs.String("q", "", "filter the page by room name or reservation id")
	status := fs.String("status", "", "PENDING, APPROVED or REJECTED")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := parseStatusFlag(*status)
	if err != nil {
		return err
	}

	v := views.NewReservationsView(a.client, a.viewOptions(ctx)...)
	if !v.Load(ctx, *page) {
		return errFailed
	}
	return a.printBookings(v.Page(), v.Filter(*q, st), true)
}

func cmdSetStatus(ctx context.Context, a *app, args []string) error {
	fs := a.flags("set-status")
	id := fs.String("id", "", "reservation id")
	status := fs.String("status", "", "APPROVED or REJECTED")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := parseStatusFlag(*status)
	if err != nil || st == "" || st == hotelapi.StatusPending {
		return errors.New("--status must be APPROVED or REJECTED")
	}
	if *id == "" {
		return errors.New("--id is required")
	}

	v := views.NewReservationsView(a.client, a.viewOptions(ctx)...)
	if !v.ChangeStatus(ctx, *id, st) {
		return errFailed
	}
	return nil
}

func cmdSummary(ctx context.Context, a *app, _ []string) error {
	s := views.LoadAdminSummary(ctx, a.client, time.Now(), a.viewOptions(ctx)...)
	if s == nil {
		return errFailed
	}
	return a.print(s, func() {
		fmt.Fprintf(a.out, "Rooms:        %s (%d available on the first page)\n", count(s.TotalRooms, s.TotalRoomsEstimated), s.AvailableRooms)
		fmt.Fprintf(a.out, "Reservations: %s  pending %d  approved %d  rejected %d\n",
			count(s.TotalReservations, s.TotalReservationsEstimated),
			s.ByStatus[hotelapi.StatusPending],
			s.ByStatus[hotelapi.StatusApproved],
			s.ByStatus[hotelapi.StatusRejected],
		)
		fmt.Fprintf(a.out, "Revenue:      %.2f\n", s.Revenue)
		fmt.Fprintf(a.out, "In house:     %d rooms, %d guests\n", s.OccupiedRooms, s.ActiveGuests)
	})
}

func parseStatusFlag(s string) (hotelapi.BookingStatus, error) {
	if s == "" {
		return "", nil
	}
	st, ok := hotelapi.ParseBookingStatus(s)
	if !ok {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// print writes v as JSON with --json and calls text otherwise.
func (a *app) print(v interface{}, text func()) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}

func (a *app) printRooms(page hotelapi.Page[hotelapi.Room], rooms []hotelapi.Room) error {
	return a.print(map[string]interface{}{"page": page, "rooms": rooms}, func() {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE\tPRICE\tAVAILABLE")
		for _, r := range rooms {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%t\n", r.ID, r.Name, r.Type, r.PricePerNight, r.Available)
		}
		tw.Flush()
		printPageFooter(a, page.Number, page.TotalPages, count(page.TotalElements, page.TotalEstimated))
	})
}

func (a *app) printBookings(page hotelapi.Page[hotelapi.BookingWithRoom], items []hotelapi.BookingWithRoom, withGuest bool) error {
	return a.print(map[string]interface{}{"page": page, "bookings": items}, func() {
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		header := "ID\tROOM\tCHECK-IN\tCHECK-OUT\tSTATUS\tTOTAL"
		if withGuest {
			header += "\tGUEST"
		}
		fmt.Fprintln(tw, header)
		for _, b := range items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f", b.ID, b.Room.Name, b.CheckIn, b.CheckOut, b.Status, b.TotalPrice)
			if withGuest {
				fmt.Fprintf(tw, "\t%s", b.UserName)
			}
			fmt.Fprintln(tw)
		}
		tw.Flush()
		printPageFooter(a, page.Number, page.TotalPages, count(page.TotalElements, page.TotalEstimated))
	})
}

func printPageFooter(a *app, number, pages int, total string) {
	if pages == 0 {
		fmt.Fprintln(a.out, "\nNothing here yet.")
		return
	}
	fmt.Fprintf(a.out, "\npage %d of %d, %s total\n", number+1, pages, total)
}

// count labels a total the server did not report exactly.
func count(n int, estimated bool) string {
	if estimated {
		return fmt.Sprintf("about %d", n)
	}
	return strconv.Itoa(n)
}

func displayName(u *hotelapi.User) string {
	if u.Email != "" {
		return u.Email
	}
	return u.Name
}
