package shared

// Capability is a permission tag granted through roles.
type Capability string

// Staff console permissions.
const (
	PermRolesView       Capability = "roles.view"
	PermRolesEdit       Capability = "roles.edit"
	PermPermissionsView Capability = "permissions.view"
)

// Society operations.
const (
	PermResidentsView     Capability = "residents.view"
	PermResidentsManage   Capability = "residents.manage"
	PermVisitorsManage    Capability = "visitors.manage"
	PermSecurityPatrol    Capability = "security.patrol"
	PermEmergencyRespond  Capability = "emergency.respond"
	PermMaintenanceManage Capability = "maintenance.manage"
	PermAmenitiesManage   Capability = "amenities.manage"
	PermNoticesPublish    Capability = "notices.publish"
	PermBillingView       Capability = "billing.view"
	PermBillingManage     Capability = "billing.manage"
	PermReportsView       Capability = "reports.view"
	PermBulkUpload        Capability = "bulk.upload"
)

var capabilityDescriptions = map[Capability]string{
	PermRolesView:         "View staff roles and their permissions",
	PermRolesEdit:         "Create, edit and bulk-manage staff roles",
	PermPermissionsView:   "View the permission catalogue",
	PermResidentsView:     "View the resident directory",
	PermResidentsManage:   "Add, edit and move out residents",
	PermVisitorsManage:    "Approve and log visitors at the gate",
	PermSecurityPatrol:    "Record patrol rounds and incidents",
	PermEmergencyRespond:  "Receive and acknowledge emergency alerts",
	PermMaintenanceManage: "Assign and close maintenance tickets",
	PermAmenitiesManage:   "Manage amenity bookings",
	PermNoticesPublish:    "Publish notices to residents",
	PermBillingView:       "View maintenance dues and invoices",
	PermBillingManage:     "Raise invoices and record payments",
	PermReportsView:       "View society reports",
	PermBulkUpload:        "Import residents and units in bulk",
}

// Capabilities lists the full vocabulary in display order.
func Capabilities() []Capability {
	return []Capability{
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermResidentsView,
		PermResidentsManage,
		PermVisitorsManage,
		PermSecurityPatrol,
		PermEmergencyRespond,
		PermMaintenanceManage,
		PermAmenitiesManage,
		PermNoticesPublish,
		PermBillingView,
		PermBillingManage,
		PermReportsView,
		PermBulkUpload,
	}
}

// Valid reports whether c belongs to the vocabulary.
func (c Capability) Valid() bool {
	_, ok := capabilityDescriptions[c]
	return ok
}

// Description returns the human readable meaning of c.
func (c Capability) Description() string {
	return capabilityDescriptions[c]
}
