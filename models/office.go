package models

type Office struct {
	ID          string `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	QueuePrefix string `json:"queue_prefix" db:"queue_prefix"`
	WifiSSID    string `json:"wifi_ssid,omitempty" db:"wifi_ssid"`
}

// Prefix returns the office display prefix, falling back to the default.
func (o *Office) Prefix() string {
	if o.QueuePrefix == "" {
		return DefaultPrefix
	}
	return o.QueuePrefix
}
