package security

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownClient = "Unknown Device"

// describeClient returns a display class such as "Chrome on Linux x86_64"
// and whether the agent identifies as a crawler.
func describeClient(userAgent string) (class string, bot bool) {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownClient, false
	}
	ua := useragent.New(userAgent)
	name, _ := ua.Browser()
	if name == "" {
		name = "Unknown"
	}
	osName := ua.OS()
	if osName == "" {
		osName = "Unknown"
	}
	return strings.TrimSpace(name + " on " + osName), ua.Bot()
}
