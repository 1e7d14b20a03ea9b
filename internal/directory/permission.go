package directory

// Permission is a representative subset of the directory's access-control
// permissions. The upstream catalog this type models is a large closed
// enum; this carries the subset exercised by the account-lifecycle paths
// this repository implements.
type Permission int

const (
	PermissionImpersonate Permission = iota
	PermissionEmailSend
	PermissionEmailReceive
	PermissionManageDomains
	PermissionManageAccounts
	PermissionManageACME
	PermissionViewMetrics
	PermissionAdminAPI
)

// PermissionGrant pairs a Permission with whether it is allowed or denied.
type PermissionGrant struct {
	Permission Permission
	Allow      bool
}

// QuotaEntry is a per-tenant quota override.
type QuotaEntry struct {
	Tenant uint32
	Quota  uint64
}
