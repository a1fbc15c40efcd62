package utils

import (
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

// WifiStatus is the result of comparing the current network against the one
// an office expects.
type WifiStatus struct {
	Connected bool   `json:"connected"`
	Message   string `json:"message"`
}

// WifiDetector resolves the SSID of the currently joined wireless network by
// shelling out to the platform tool. It is best-effort: an empty SSID means
// "not on wifi or cannot tell".
type WifiDetector struct {
	goos string

	// runCommand is swapped out in tests.
	runCommand func(name string, args ...string) (string, error)
}

func NewWifiDetector() *WifiDetector {
	return &WifiDetector{
		goos: runtime.GOOS,
		runCommand: func(name string, args ...string) (string, error) {
			out, err := exec.Command(name, args...).Output()
			return string(out), err
		},
	}
}

var windowsSSIDPattern = regexp.MustCompile(`SSID\s*:\s*(.+)`)

// CurrentSSID returns the joined network name, or "" when unknown.
func (d *WifiDetector) CurrentSSID() string {
	switch d.goos {
	case "linux":
		if out, err := d.runCommand("iwgetid", "-r"); err == nil {
			return strings.TrimSpace(out)
		}
		// NetworkManager hosts without wireless-tools.
		if out, err := d.runCommand("nmcli", "-t", "-f", "active,ssid", "dev", "wifi"); err == nil {
			for _, line := range strings.Split(out, "\n") {
				if rest, ok := strings.CutPrefix(line, "yes:"); ok {
					return strings.TrimSpace(rest)
				}
			}
		}
	case "windows":
		if out, err := d.runCommand("netsh", "wlan", "show", "interfaces"); err == nil {
			if m := windowsSSIDPattern.FindStringSubmatch(out); m != nil {
				ssid := strings.TrimSpace(m[1])
				if !strings.EqualFold(ssid, "name") {
					return ssid
				}
			}
		}
	case "darwin":
		if out, err := d.runCommand("networksetup", "-getairportnetwork", "en0"); err == nil {
			if _, rest, ok := strings.Cut(out, ": "); ok {
				return strings.TrimSpace(rest)
			}
		}
	}
	return ""
}

// Status compares the current network against the target SSID,
// case-insensitively.
func (d *WifiDetector) Status(targetSSID string) WifiStatus {
	current := d.CurrentSSID()
	if current == "" {
		return WifiStatus{Connected: false, Message: "Not connected to WiFi"}
	}
	if strings.EqualFold(current, targetSSID) {
		return WifiStatus{Connected: true, Message: "Connected to " + targetSSID}
	}
	return WifiStatus{Connected: false, Message: "Wrong WiFi: " + current}
}
