// Package rosterview implements the consumer-side contract of the presence
// roster: icon and badge mapping for activity strings, relative timestamps,
// and self-deduplication. Kept server-side so every client surface (web
// sidebar, mobile) renders the same way.
package rosterview

import (
	"fmt"
	"strings"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
)

// ActivityIcon maps a free-text activity to a FontAwesome icon by substring.
// Activities are free text, not an enum, so unknown strings get the default.
func ActivityIcon(activity string) string {
	switch {
	case strings.Contains(activity, "pasien") || strings.Contains(activity, "patient"):
		return "fa-user-injured"
	case strings.Contains(activity, "anamnesa"):
		return "fa-clipboard-list"
	case strings.Contains(activity, "billing") || strings.Contains(activity, "tagihan"):
		return "fa-file-invoice-dollar"
	case strings.Contains(activity, "kunjungan") || strings.Contains(activity, "visit"):
		return "fa-check-circle"
	case strings.Contains(activity, "bergabung") || strings.Contains(activity, "joined"):
		return "fa-sign-in-alt"
	default:
		return "fa-circle"
	}
}

var roleColors = map[string]string{
	"superadmin":      "danger",
	"admin":           "primary",
	"manager":         "warning",
	"doctorassistant": "info",
	"doctor":          "success",
}

// RoleColor maps a staff role to its badge color.
func RoleColor(role string) string {
	if color, ok := roleColors[role]; ok {
		return color
	}
	return "secondary"
}

// TimeAgo renders a relative Indonesian timestamp. Recomputed per render;
// there is no live ticking.
func TimeAgo(t, now time.Time) string {
	sec := int(now.Sub(t).Seconds())
	if sec < 10 {
		return "baru saja"
	}
	if sec < 60 {
		return fmt.Sprintf("%d detik lalu", sec)
	}
	min := sec / 60
	if min < 60 {
		return fmt.Sprintf("%d menit lalu", min)
	}
	return fmt.Sprintf("%d jam lalu", min/60)
}

// VisibleEntries filters the viewer out of a roster snapshot. The server
// includes the viewer in users:list by design; rendering dedupes by userId.
func VisibleEntries(roster []protocol.RosterEntry, selfUserID string) []protocol.RosterEntry {
	visible := make([]protocol.RosterEntry, 0, len(roster))
	for _, entry := range roster {
		if entry.UserID == selfUserID {
			continue
		}
		visible = append(visible, entry)
	}
	return visible
}
