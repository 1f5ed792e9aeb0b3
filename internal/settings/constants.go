package settings

// Runtime setting keys and their defaults.
const (
	// SiteNameKey is the setting key for the console title.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback console title.
	DefaultSiteName = "UniDate Admin"
	// MetricsRefreshIntervalSecondsKey overrides the dashboard snapshot refresh interval.
	MetricsRefreshIntervalSecondsKey = "METRICS_REFRESH_INTERVAL_SECONDS"
	// NotificationRetentionDaysKey overrides how long read notifications are kept. Zero disables cleanup.
	NotificationRetentionDaysKey = "NOTIFICATION_RETENTION_DAYS"
	// DashboardPageSizeKey is the default page size suggested to list screens.
	DashboardPageSizeKey = "DASHBOARD_PAGE_SIZE"
	// DefaultDashboardPageSize is the fallback list page size.
	DefaultDashboardPageSize = 10
)

// EditableKeys lists the keys admins may change through the settings API.
var EditableKeys = []string{
	SiteNameKey,
	MetricsRefreshIntervalSecondsKey,
	NotificationRetentionDaysKey,
	DashboardPageSizeKey,
}

// IsEditable reports whether key may be written through the settings API.
func IsEditable(key string) bool {
	for _, k := range EditableKeys {
		if k == key {
			return true
		}
	}
	return false
}
