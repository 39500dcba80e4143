package labsdk

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
)

// Backend collection paths, as registered by the backend.
const (
	PathLaboratories = "/laboratories"
	PathEquipment    = "/equipment"
	PathMaintenance  = "/equipment/maintenance"
	PathReservations = "/reservations"
	PathConsumables  = "/consumables"
	PathCourses      = "/courses"
	PathUsers        = "/users"
	PathAvatarUpload = "/upload/avatar"
)

// ============================================================================
// Laboratories
// ============================================================================

// Laboratories is the lab room collection.
type Laboratories struct {
	Resource[Laboratory]
}

// Laboratories returns the lab room collection.
func (c *Client) Laboratories() *Laboratories {
	return &Laboratories{newResource[Laboratory](c, PathLaboratories)}
}

// Equipment lists the equipment installed in a lab.
func (l *Laboratories) Equipment(ctx context.Context, labID int64) (*Page[Equipment], error) {
	return getPage[Equipment](ctx, l.client, l.item(labID, "equipment"), nil)
}

// Availability returns the lab's booking timeline for date (YYYY-MM-DD).
// The timeline shape is backend defined.
func (l *Laboratories) Availability(ctx context.Context, labID int64, date string) (json.RawMessage, error) {
	result, err := l.client.Get(ctx, l.item(labID, "availability"), url.Values{"date": {date}})
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ============================================================================
// Equipment
// ============================================================================

// EquipmentSet is the equipment collection.
type EquipmentSet struct {
	Resource[Equipment]
}

// Equipment returns the equipment collection.
func (c *Client) Equipment() *EquipmentSet {
	return &EquipmentSet{newResource[Equipment](c, PathEquipment)}
}

// Statistics returns the backend's equipment summary.
func (e *EquipmentSet) Statistics(ctx context.Context) (json.RawMessage, error) {
	result, err := e.client.Get(ctx, e.base+"/statistics", nil)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// History lists the maintenance records of one piece of equipment.
func (e *EquipmentSet) History(ctx context.Context, equipmentID int64) (*Page[MaintenanceRecord], error) {
	return getPage[MaintenanceRecord](ctx, e.client, e.item(equipmentID, "maintenance"), nil)
}

// Maintenance is the maintenance record collection.
type Maintenance struct {
	Resource[MaintenanceRecord]
}

// Maintenance returns the maintenance record collection.
func (c *Client) Maintenance() *Maintenance {
	return &Maintenance{newResource[MaintenanceRecord](c, PathMaintenance)}
}

// Complete closes a maintenance record.
func (m *Maintenance) Complete(ctx context.Context, id int64, req CompleteMaintenanceRequest) error {
	_, err := m.client.Post(ctx, m.item(id, "complete"), req)
	return err
}

// ============================================================================
// Reservations
// ============================================================================

// Reservations is the lab booking collection.
type Reservations struct {
	Resource[Reservation]
}

// Reservations returns the lab booking collection.
func (c *Client) Reservations() *Reservations {
	return &Reservations{newResource[Reservation](c, PathReservations)}
}

// Mine lists the logged-in user's own reservations.
func (r *Reservations) Mine(ctx context.Context, params ListParams) (*Page[Reservation], error) {
	return getPage[Reservation](ctx, r.client, r.base+"/my", params.Values())
}

// Approve confirms a pending reservation.
func (r *Reservations) Approve(ctx context.Context, id int64) error {
	_, err := r.client.Post(ctx, r.item(id, "approve"), nil)
	return err
}

// Reject cancels a pending reservation.
func (r *Reservations) Reject(ctx context.Context, id int64) error {
	_, err := r.client.Post(ctx, r.item(id, "reject"), nil)
	return err
}

// CheckConflict returns the reservations that overlap q. Empty means the slot
// is free.
func (r *Reservations) CheckConflict(ctx context.Context, q ConflictQuery) ([]Reservation, error) {
	result, err := r.client.Post(ctx, r.base+"/check-conflict", q)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Conflicts []Reservation `json:"conflicting_reservations"`
	}
	if err := result.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Conflicts, nil
}

// Calendar returns reservations between two dates (YYYY-MM-DD) for the
// calendar view.
func (r *Reservations) Calendar(ctx context.Context, from, to string) (*Page[Reservation], error) {
	params := url.Values{}
	if from != "" {
		params.Set("start_date", from)
	}
	if to != "" {
		params.Set("end_date", to)
	}
	return getPage[Reservation](ctx, r.client, r.base+"/calendar", params)
}

// Stats returns the backend's reservation summary.
func (r *Reservations) Stats(ctx context.Context) (json.RawMessage, error) {
	result, err := r.client.Get(ctx, r.base+"/stats", nil)
	if err != nil {
		return nil, err
	}
	return result.Data, nil
}

// ============================================================================
// Consumables
// ============================================================================

// Consumables is the lab supply collection.
type Consumables struct {
	Resource[Consumable]
}

// Consumables returns the lab supply collection.
func (c *Client) Consumables() *Consumables {
	return &Consumables{newResource[Consumable](c, PathConsumables)}
}

// Use records a withdrawal and lowers the stock.
func (cs *Consumables) Use(ctx context.Context, id int64, req UseRequest) error {
	_, err := cs.client.Post(ctx, cs.item(id, "use"), req)
	return err
}

// Restock raises the stock.
func (cs *Consumables) Restock(ctx context.Context, id int64, req RestockRequest) error {
	_, err := cs.client.Post(ctx, cs.item(id, "restock"), req)
	return err
}

// UsageRecords lists withdrawals across all consumables.
func (cs *Consumables) UsageRecords(ctx context.Context, params ListParams) (*Page[UsageRecord], error) {
	return getPage[UsageRecord](ctx, cs.client, cs.base+"/usage", params.Values())
}

// ExportUsage downloads the usage report and copies it to w. It returns the
// file name the backend suggested, if any.
func (cs *Consumables) ExportUsage(ctx context.Context, w io.Writer) (string, error) {
	resp, err := cs.client.Download(ctx, cs.base+"/usage/export", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", cs.client.transportFailure(ctx, &Request{Method: http.MethodGet, Path: cs.base + "/usage/export"}, err)
	}
	return attachmentName(resp.Header), nil
}

// ============================================================================
// Courses
// ============================================================================

// Courses is the course collection.
type Courses struct {
	Resource[Course]
}

// Courses returns the course collection.
func (c *Client) Courses() *Courses {
	return &Courses{newResource[Course](c, PathCourses)}
}

// Mine lists the courses the logged-in teacher runs or student attends.
func (cs *Courses) Mine(ctx context.Context) (*Page[Course], error) {
	return getPage[Course](ctx, cs.client, cs.base+"/my-courses", nil)
}

// AddStudents enrols students in a course.
func (cs *Courses) AddStudents(ctx context.Context, courseID int64, studentIDs ...int64) error {
	body := struct {
		StudentIDs []int64 `json:"student_ids"`
	}{StudentIDs: studentIDs}

	_, err := cs.client.Post(ctx, cs.item(courseID, "students"), body)
	return err
}

// RemoveStudent withdraws one student from a course.
func (cs *Courses) RemoveStudent(ctx context.Context, courseID, studentID int64) error {
	_, err := cs.client.Delete(ctx, cs.item(courseID, "students", strconv.FormatInt(studentID, 10)), nil)
	return err
}

// ============================================================================
// Users
// ============================================================================

// Users is the account collection. Administrators only.
type Users struct {
	Resource[User]
}

// Users returns the account collection.
func (c *Client) Users() *Users {
	return &Users{newResource[User](c, PathUsers)}
}

// ResetPassword sets a new password for another user.
func (u *Users) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	body := struct {
		NewPassword string `json:"new_password"`
	}{NewPassword: newPassword}

	_, err := u.client.Put(ctx, u.item(userID, "reset-password"), body)
	return err
}

// UploadAvatar uploads an image for the logged-in user and returns the URL
// the backend stored.
func (c *Client) UploadAvatar(ctx context.Context, filename string, image io.Reader) (string, error) {
	result, err := c.Upload(ctx, PathAvatarUpload, "file", filename, image, nil)
	if err != nil {
		return "", err
	}

	var payload map[string]json.RawMessage
	if err := result.Decode(&payload); err != nil {
		return "", err
	}
	return scalarString(payload["url"]), nil
}

// attachmentName returns the filename from a Content-Disposition header.
func attachmentName(h http.Header) string {
	_, params, err := mime.ParseMediaType(h.Get("Content-Disposition"))
	if err != nil {
		return ""
	}
	return params["filename"]
}
