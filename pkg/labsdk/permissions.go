package labsdk

import "slices"

// Roles known to the backend.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Permissions derived from a role.
const (
	PermUserManage         = "user:manage"
	PermLaboratoryManage   = "laboratory:manage"
	PermLaboratoryView     = "laboratory:view"
	PermEquipmentManage    = "equipment:manage"
	PermEquipmentView      = "equipment:view"
	PermEquipmentMaintain  = "equipment:maintain"
	PermReservationManage  = "reservation:manage"
	PermReservationCreate  = "reservation:create"
	PermReservationApprove = "reservation:approve"
	PermReservationView    = "reservation:view"
	PermConsumableManage   = "consumable:manage"
	PermConsumableView     = "consumable:view"
	PermConsumableUse      = "consumable:use"
	PermCourseManage       = "course:manage"
	PermStatisticsView     = "statistics:view"
	PermSettingsManage     = "settings:manage"
)

// rolePermissions is the fixed, exhaustive role table. Roles not listed here
// have no permissions.
var rolePermissions = map[string][]string{
	RoleAdmin: {
		PermUserManage,
		PermLaboratoryManage,
		PermEquipmentManage,
		PermReservationManage,
		PermConsumableManage,
		PermCourseManage,
		PermStatisticsView,
		PermSettingsManage,
	},
	RoleTeacher: {
		PermLaboratoryView,
		PermEquipmentView,
		PermEquipmentMaintain,
		PermReservationCreate,
		PermReservationApprove,
		PermConsumableView,
		PermConsumableUse,
		PermCourseManage,
		PermStatisticsView,
	},
	RoleStudent: {
		PermLaboratoryView,
		PermEquipmentView,
		PermReservationCreate,
		PermReservationView,
		PermConsumableView,
	},
}

// PermissionsForRole returns a copy of role's permission list, in table
// order. Unknown or empty roles yield an empty, non-nil slice.
func PermissionsForRole(role string) []string {
	perms := slices.Clone(rolePermissions[role])
	if perms == nil {
		return []string{}
	}
	return perms
}

// permissionSet builds the lookup map the session keeps.
func permissionSet(role string) map[string]bool {
	perms := rolePermissions[role]
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}
