package enums

// StaffRole identifies what a back-office user is allowed to do.
type StaffRole string

const (
	StaffRoleAdmin     StaffRole = "admin"
	StaffRoleOps       StaffRole = "ops"
	StaffRoleLogistics StaffRole = "logistics"
)

var staffRoles = []StaffRole{
	StaffRoleAdmin,
	StaffRoleOps,
	StaffRoleLogistics,
}

func (r StaffRole) IsValid() bool {
	for _, role := range staffRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (r StaffRole) String() string {
	return string(r)
}
