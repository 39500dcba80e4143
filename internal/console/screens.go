package console

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aussiebroadwan/labdesk/pkg/labsdk"
)

// Screens renders routes as plain text on out.
type Screens struct {
	Client  *labsdk.Client
	Session *labsdk.Session
	Out     io.Writer

	// PageSize is used by every list screen.
	PageSize int

	clock func() time.Time
}

// Map returns the screen for every route name the console renders.
func (s *Screens) Map() map[string]Screen {
	return map[string]Screen{
		"Login":    s.notice("Use: login <username> <password>"),
		"Register": s.notice("Use: register <username> <password> <name>"),
		"NotFound": s.notFound,

		"Dashboard": s.dashboard,
		"Profile":   s.profile,
		"Settings":  s.notice("System settings are not available in the console."),

		"LaboratoryList":   s.laboratories,
		"LaboratoryCreate": s.formOnly,
		"LaboratoryEdit":   s.laboratory,

		"EquipmentList":        s.equipment,
		"EquipmentCreate":      s.formOnly,
		"EquipmentMaintenance": s.maintenance,

		"ReservationList":     s.reservations,
		"ReservationCreate":   s.formOnly,
		"ReservationCalendar": s.calendar,
		"ReservationApproval": s.approvals,

		"ConsumableList":   s.consumables,
		"ConsumableCreate": s.formOnly,
		"ConsumableUsage":  s.usage,

		"CourseList":   s.courses,
		"CourseCreate": s.formOnly,

		"UserList":   s.users,
		"UserCreate": s.formOnly,

		"StatisticsOverview":    s.reservationStats,
		"StatisticsReservation": s.reservationStats,
		"StatisticsEquipment":   s.equipmentStats,
	}
}

func (s *Screens) params() labsdk.ListParams {
	size := s.PageSize
	if size <= 0 {
		size = 10
	}
	return labsdk.ListParams{Page: 1, PageSize: size}
}

func (s *Screens) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// ============================================================================
// Static screens
// ============================================================================

func (s *Screens) notice(text string) Screen {
	return func(context.Context, Match) error {
		fmt.Fprintln(s.Out, text)
		return nil
	}
}

func (s *Screens) formOnly(_ context.Context, m Match) error {
	fmt.Fprintf(s.Out, "%s needs a form and is not available in the console.\n", m.Meta.Title)
	return nil
}

func (s *Screens) notFound(_ context.Context, m Match) error {
	fmt.Fprintf(s.Out, "page not found: %s\n", m.Path)
	return nil
}

func (s *Screens) dashboard(context.Context, Match) error {
	p := s.Session.Profile()
	if p == nil {
		fmt.Fprintln(s.Out, "Welcome.")
		return nil
	}
	fmt.Fprintf(s.Out, "Welcome, %s (%s).\n", firstNonEmpty(p.Name, p.Username), p.Role)
	fmt.Fprintf(s.Out, "Permissions: %s\n", strings.Join(s.Session.GetUserPermissions(), ", "))
	return nil
}

func (s *Screens) profile(context.Context, Match) error {
	p := s.Session.Profile()
	if p == nil {
		fmt.Fprintln(s.Out, "No profile loaded.")
		return nil
	}

	keys := make([]string, 0, len(p.Fields))
	for k := range p.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	tw := newTable(s.Out)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, fieldText(p.Fields[k]))
	}
	return tw.Flush()
}

// ============================================================================
// Resource screens
// ============================================================================

func (s *Screens) laboratories(ctx context.Context, _ Match) error {
	page, err := s.Client.Laboratories().List(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tNAME\tLOCATION\tCAPACITY\tSTATUS", func(l labsdk.Laboratory) string {
		return fmt.Sprintf("%d\t%s\t%s\t%d\t%s", l.ID, l.Name, l.Location, l.Capacity, l.Status)
	})
}

func (s *Screens) laboratory(ctx context.Context, m Match) error {
	id, err := strconv.ParseInt(m.Params["id"], 10, 64)
	if err != nil {
		fmt.Fprintf(s.Out, "invalid laboratory id %q\n", m.Params["id"])
		return nil
	}

	lab, err := s.Client.Laboratories().Get(ctx, id)
	if err != nil {
		return err
	}

	tw := newTable(s.Out)
	fmt.Fprintf(tw, "ID\t%d\n", lab.ID)
	fmt.Fprintf(tw, "Name\t%s\n", lab.Name)
	fmt.Fprintf(tw, "Location\t%s\n", lab.Location)
	fmt.Fprintf(tw, "Capacity\t%d\n", lab.Capacity)
	fmt.Fprintf(tw, "Status\t%s\n", lab.Status)
	fmt.Fprintf(tw, "Manager\t%s\n", lab.ManagerName)
	fmt.Fprintf(tw, "Description\t%s\n", lab.Description)
	return tw.Flush()
}

func (s *Screens) equipment(ctx context.Context, _ Match) error {
	page, err := s.Client.Equipment().List(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tNAME\tMODEL\tSERIAL\tLAB\tSTATUS", func(e labsdk.Equipment) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s", e.ID, e.Name, e.Model, e.SerialNumber, e.LaboratoryName, e.Status)
	})
}

func (s *Screens) maintenance(ctx context.Context, _ Match) error {
	page, err := s.Client.Maintenance().List(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tEQUIPMENT\tTYPE\tSTATUS\tTECHNICIAN", func(r labsdk.MaintenanceRecord) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s", r.ID, r.EquipmentName, r.Type, r.Status, r.Technician)
	})
}

const reservationHeader = "ID\tLAB\tDATE\tTIME\tUSER\tSTATUS"

func reservationRow(r labsdk.Reservation) string {
	return fmt.Sprintf("%d\t%s\t%s\t%s-%s\t%s\t%s",
		r.ID, r.LaboratoryName, r.ReservationDate, r.StartTime, r.EndTime, r.UserName, r.Status)
}

func (s *Screens) reservations(ctx context.Context, _ Match) error {
	var (
		page *labsdk.Page[labsdk.Reservation]
		err  error
	)
	// Students only ever see their own bookings.
	if s.Session.IsStudent() {
		page, err = s.Client.Reservations().Mine(ctx, s.params())
	} else {
		page, err = s.Client.Reservations().List(ctx, s.params())
	}
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, reservationHeader, reservationRow)
}

func (s *Screens) approvals(ctx context.Context, _ Match) error {
	params := s.params()
	params.Status = "pending"

	page, err := s.Client.Reservations().List(ctx, params)
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, reservationHeader, reservationRow)
}

func (s *Screens) calendar(ctx context.Context, _ Match) error {
	now := s.now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)

	page, err := s.Client.Reservations().Calendar(ctx, first.Format(time.DateOnly), last.Format(time.DateOnly))
	if err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "%s\n", first.Format("January 2006"))
	return renderPage(s.Out, page, reservationHeader, reservationRow)
}

func (s *Screens) consumables(ctx context.Context, _ Match) error {
	page, err := s.Client.Consumables().List(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tNAME\tSTOCK\tMIN\tUNIT\tSTATUS", func(c labsdk.Consumable) string {
		return fmt.Sprintf("%d\t%s\t%g\t%g\t%s\t%s", c.ID, c.Name, c.CurrentStock, c.MinStock, c.Unit, c.Status)
	})
}

func (s *Screens) usage(ctx context.Context, _ Match) error {
	page, err := s.Client.Consumables().UsageRecords(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tCONSUMABLE\tUSER\tQUANTITY\tWHEN", func(u labsdk.UsageRecord) string {
		return fmt.Sprintf("%d\t%s\t%s\t%g\t%s", u.ID, u.Name, u.UserName, u.Quantity, u.CreatedAt)
	})
}

func (s *Screens) courses(ctx context.Context, _ Match) error {
	var (
		page *labsdk.Page[labsdk.Course]
		err  error
	)
	if s.Session.IsTeacher() {
		page, err = s.Client.Courses().Mine(ctx)
	} else {
		page, err = s.Client.Courses().List(ctx, s.params())
	}
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tCODE\tNAME\tSEMESTER\tSTUDENTS", func(c labsdk.Course) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%d", c.ID, c.Code, c.Name, c.Semester, c.StudentCount)
	})
}

func (s *Screens) users(ctx context.Context, _ Match) error {
	page, err := s.Client.Users().List(ctx, s.params())
	if err != nil {
		return err
	}
	return renderPage(s.Out, page, "ID\tUSERNAME\tNAME\tROLE\tSTATUS", func(u labsdk.User) string {
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%s", u.ID, u.Username, u.Name, u.Role, u.Status)
	})
}

func (s *Screens) reservationStats(ctx context.Context, _ Match) error {
	raw, err := s.Client.Reservations().Stats(ctx)
	if err != nil {
		return err
	}
	return renderJSON(s.Out, raw)
}

func (s *Screens) equipmentStats(ctx context.Context, _ Match) error {
	raw, err := s.Client.Equipment().Statistics(ctx)
	if err != nil {
		return err
	}
	return renderJSON(s.Out, raw)
}

// ============================================================================
// Rendering helpers
// ============================================================================

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func renderPage[T any](w io.Writer, page *labsdk.Page[T], header string, row func(T) string) error {
	if len(page.List) == 0 {
		fmt.Fprintln(w, "(no records)")
		return nil
	}

	tw := newTable(w)
	fmt.Fprintln(tw, header)
	for _, item := range page.List {
		fmt.Fprintln(tw, row(item))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if page.Page > 0 {
		fmt.Fprintf(w, "page %d, %d of %d records\n", page.Page, len(page.List), page.Total)
	} else {
		fmt.Fprintf(w, "%d records\n", page.Total)
	}
	return nil
}

func renderJSON(w io.Writer, raw json.RawMessage) error {
	if len(raw) == 0 {
		fmt.Fprintln(w, "(no data)")
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func fieldText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
