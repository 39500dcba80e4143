package labsdk

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
)

// ============================================================================
// Auth Types
// ============================================================================

// Credentials is the login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the self-registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role,omitempty"`
}

// ChangePasswordRequest is the change-password request body.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UserProfile is the backend's description of the logged-in user. The
// backend owns its shape: the typed fields are read leniently (strings or
// numbers) and every field, known or not, is kept in Fields.
type UserProfile struct {
	ID       string
	Username string
	Name     string
	Email    string
	Phone    string
	Role     string
	Status   string

	Fields map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *UserProfile) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	p.setFields(fields)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p UserProfile) MarshalJSON() ([]byte, error) {
	if p.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.Fields)
}

func (p *UserProfile) setFields(fields map[string]json.RawMessage) {
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	*p = UserProfile{
		ID:       scalarString(fields["id"]),
		Username: scalarString(fields["username"]),
		Name:     scalarString(fields["name"]),
		Email:    scalarString(fields["email"]),
		Phone:    scalarString(fields["phone"]),
		Role:     scalarString(fields["role"]),
		Status:   scalarString(fields["status"]),
		Fields:   fields,
	}
}

// merge returns a copy of p with patch applied over its fields.
func (p *UserProfile) merge(patch map[string]any) (*UserProfile, error) {
	fields := maps.Clone(p.Fields)
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	for k, v := range patch {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fields[k] = raw
	}

	merged := &UserProfile{}
	merged.setFields(fields)
	return merged, nil
}

// clone returns a deep copy safe to hand to callers.
func (p *UserProfile) clone() *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Fields = maps.Clone(p.Fields)
	return &cp
}

// ============================================================================
// List Parameters
// ============================================================================

// ListParams are the query parameters every list endpoint accepts.
type ListParams struct {
	Page     int
	PageSize int
	Search   string
	Status   string

	// Extra carries endpoint-specific filters.
	Extra url.Values
}

// Values encodes the parameters, skipping zero values.
func (p ListParams) Values() url.Values {
	v := url.Values{}
	for k, vs := range p.Extra {
		v[k] = append([]string(nil), vs...)
	}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(p.PageSize))
	}
	if p.Search != "" {
		v.Set("search", p.Search)
	}
	if p.Status != "" {
		v.Set("status", p.Status)
	}
	return v
}

// ============================================================================
// Resource Types
// ============================================================================

// Laboratory is a bookable lab room.
type Laboratory struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Location    string `json:"location"`
	Capacity    int    `json:"capacity"`
	Description string `json:"description"`
	Status      string `json:"status"`
	ManagerID   *int64 `json:"manager_id,omitempty"`
	ManagerName string `json:"manager_name,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// Equipment is a piece of lab equipment.
type Equipment struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Model          string `json:"model"`
	SerialNumber   string `json:"serial_number"`
	Status         string `json:"status"`
	LaboratoryID   *int64 `json:"laboratory_id,omitempty"`
	LaboratoryName string `json:"laboratory_name,omitempty"`
	PurchaseDate   string `json:"purchase_date,omitempty"`
	WarrantyDate   string `json:"warranty_date,omitempty"`
	Description    string `json:"description,omitempty"`
}

// MaintenanceRecord is one repair or service job on a piece of equipment.
type MaintenanceRecord struct {
	ID                     int64   `json:"id"`
	EquipmentID            int64   `json:"equipment_id"`
	EquipmentName          string  `json:"equipment_name,omitempty"`
	Type                   string  `json:"type"`
	Description            string  `json:"description"`
	Status                 string  `json:"status"`
	Technician             string  `json:"technician,omitempty"`
	Cost                   float64 `json:"cost,omitempty"`
	StartDate              string  `json:"start_date,omitempty"`
	ExpectedCompletionDate string  `json:"expected_completion_date,omitempty"`
	ActualCompletionDate   string  `json:"actual_completion_date,omitempty"`
}

// Reservation is a lab booking. List endpoints nest the lab and the user as
// objects and send equipment_ids as a comma-separated string; decoding
// flattens both.
type Reservation struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id,omitempty"`
	UserName        string         `json:"user_name,omitempty"`
	LaboratoryID    int64          `json:"laboratory_id,omitempty"`
	LaboratoryName  string         `json:"laboratory_name,omitempty"`
	ReservationDate string         `json:"reservation_date"`
	StartTime       string         `json:"start_time"`
	EndTime         string         `json:"end_time"`
	Purpose         string         `json:"purpose"`
	Status          string         `json:"status"`
	EquipmentIDs    []int64        `json:"equipment_ids,omitempty"`
	Equipment       []EquipmentRef `json:"equipment,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
	UpdatedAt       string         `json:"updated_at,omitempty"`
}

// EquipmentRef is the short form of equipment embedded in a reservation.
type EquipmentRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model,omitempty"`
}

type namedRef struct {
	Name string `json:"name"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Reservation) UnmarshalJSON(b []byte) error {
	type plain Reservation
	var aux struct {
		plain
		EquipmentIDs json.RawMessage `json:"equipment_ids"`
		Laboratory   *namedRef       `json:"laboratory"`
		User         *namedRef       `json:"user"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	ids, err := parseIDList(aux.EquipmentIDs)
	if err != nil {
		return fmt.Errorf("equipment_ids: %w", err)
	}

	*r = Reservation(aux.plain)
	r.EquipmentIDs = ids
	if r.LaboratoryName == "" && aux.Laboratory != nil {
		r.LaboratoryName = aux.Laboratory.Name
	}
	if r.UserName == "" && aux.User != nil {
		r.UserName = aux.User.Name
	}
	return nil
}

// parseIDList reads ids sent either as a JSON array or as a comma-separated
// string such as "1,2".
func parseIDList(raw json.RawMessage) ([]int64, error) {
	if isNull(raw) {
		return nil, nil
	}

	var parts []string
	if isArray(raw) {
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			parts = append(parts, scalarString(item))
		}
	} else {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		parts = strings.Split(s, ",")
	}

	var ids []int64
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ConflictQuery asks whether a slot overlaps existing reservations.
type ConflictQuery struct {
	LaboratoryID int64  `json:"laboratory_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
}

// Consumable is a stocked lab supply. The consumables API uses camelCase keys.
type Consumable struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Model        string  `json:"model,omitempty"`
	LabID        *int64  `json:"labId,omitempty"`
	LabName      string  `json:"labName,omitempty"`
	Unit         string  `json:"unit"`
	UnitPrice    float64 `json:"unitPrice"`
	CurrentStock float64 `json:"currentStock"`
	MinStock     float64 `json:"minStock"`
	Supplier     string  `json:"supplier,omitempty"`
	PurchaseDate string  `json:"purchaseDate,omitempty"`
	Description  string  `json:"description,omitempty"`
	Status       string  `json:"status,omitempty"`
	UsageCount   int     `json:"usageCount"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	UpdatedAt    string  `json:"updatedAt,omitempty"`
}

// UsageRecord is one withdrawal of a consumable.
type UsageRecord struct {
	ID              int64   `json:"id"`
	ConsumableID    int64   `json:"consumableId"`
	Name            string  `json:"consumableName,omitempty"`
	ConsumableModel string  `json:"consumableModel,omitempty"`
	UserID          int64   `json:"userId"`
	UserName        string  `json:"userName,omitempty"`
	LabID           *int64  `json:"labId,omitempty"`
	LabName         string  `json:"labName,omitempty"`
	Unit            string  `json:"unit,omitempty"`
	UnitPrice       float64 `json:"unitPrice"`
	Quantity        float64 `json:"quantity"`
	Purpose         string  `json:"purpose,omitempty"`
	UsageDate       string  `json:"usageDate,omitempty"`
	CreatedAt       string  `json:"createdAt,omitempty"`
}

// UseRequest records a withdrawal of a consumable.
type UseRequest struct {
	Quantity float64 `json:"quantity"`
	UserID   int64   `json:"userId"`
	Purpose  string  `json:"purpose"`
}

// RestockRequest adds stock to a consumable.
type RestockRequest struct {
	Quantity  float64  `json:"quantity"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
	Supplier  string   `json:"supplier,omitempty"`
	Remarks   string   `json:"remarks,omitempty"`
}

// CompleteMaintenanceRequest closes a maintenance record.
type CompleteMaintenanceRequest struct {
	ActualCompletionDate string   `json:"actual_completion_date,omitempty"`
	Remarks              string   `json:"remarks,omitempty"`
	Cost                 *float64 `json:"cost,omitempty"`
}

// Course is a taught course that may require lab time.
type Course struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	Credits      int    `json:"credits"`
	Semester     string `json:"semester"`
	TeacherID    int64  `json:"teacher_id"`
	Description  string `json:"description,omitempty"`
	RequiresLab  bool   `json:"requires_lab"`
	StudentCount int    `json:"student_count"`
	Status       string `json:"status,omitempty"`
}

// User is an account as seen by administrators.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}
