// Package session holds the persisted Instagram client state.
package session

type DeviceSettings struct {
	AppVersion     string `json:"app_version"`
	AndroidVersion int    `json:"android_version"`
	AndroidRelease string `json:"android_release"`
	DPI            string `json:"dpi"`
	Resolution     string `json:"resolution"`
	Manufacturer   string `json:"manufacturer"`
	Device         string `json:"device"`
	Model          string `json:"model"`
	CPU            string `json:"cpu"`
	VersionCode    string `json:"version_code"`
}

// Session is everything needed to resume a logged-in client. Passwords are
// never stored.
type Session struct {
	Username       string            `json:"username"`
	Cookies        map[string]string `json:"cookies"`
	LastLogin      int64             `json:"last_login"`
	DeviceSettings *DeviceSettings   `json:"device_settings"`
	UUIDs          map[string]string `json:"uuids"`
	Mid            string            `json:"mid,omitempty"`
	IgWwwClaim     string            `json:"ig_www_claim,omitempty"`
}
