package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleStaff      = "staff"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// CanActFor reports whether a caller scoped to callerAgency may touch targetAgency.
func CanActFor(role, callerAgency, targetAgency string) bool {
	if IsSuperAdmin(role) {
		return true
	}
	return callerAgency != "" && callerAgency == targetAgency
}
