package rosterview_test

import (
	"testing"
	"time"

	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/protocol"
	"github.com/dibyaarfianda/dokterdibya-realtime/pkg/rosterview"
)

func TestActivityIcon(t *testing.T) {
	cases := []struct {
		activity string
		icon     string
	}{
		{"Memilih pasien: Ibu Ani", "fa-user-injured"},
		{"Mengisi anamnesa: Ibu Ani", "fa-clipboard-list"},
		{"Memperbarui billing: Ibu Ani", "fa-file-invoice-dollar"},
		{"Menyelesaikan kunjungan: Ibu Ani", "fa-check-circle"},
		{"Baru bergabung", "fa-sign-in-alt"},
		{"Idle", "fa-circle"},
		{"", "fa-circle"},
		{"sesuatu yang lain", "fa-circle"},
	}
	for _, tc := range cases {
		if got := rosterview.ActivityIcon(tc.activity); got != tc.icon {
			t.Errorf("ActivityIcon(%q) = %q, want %q", tc.activity, got, tc.icon)
		}
	}
}

func TestRoleColor(t *testing.T) {
	if got := rosterview.RoleColor("doctor"); got != "success" {
		t.Errorf("RoleColor(doctor) = %q, want success", got)
	}
	if got := rosterview.RoleColor("superadmin"); got != "danger" {
		t.Errorf("RoleColor(superadmin) = %q, want danger", got)
	}
	if got := rosterview.RoleColor("janitor"); got != "secondary" {
		t.Errorf("Unknown roles get the default color, got %q", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{5 * time.Second, "baru saja"},
		{30 * time.Second, "30 detik lalu"},
		{5 * time.Minute, "5 menit lalu"},
		{3 * time.Hour, "3 jam lalu"},
	}
	for _, tc := range cases {
		if got := rosterview.TimeAgo(now.Add(-tc.ago), now); got != tc.want {
			t.Errorf("TimeAgo(-%v) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestVisibleEntriesDedupesSelf(t *testing.T) {
	roster := []protocol.RosterEntry{
		{UserID: "u1", Name: "Dr. Dibya"},
		{UserID: "u2", Name: "Nurse Siti"},
	}
	visible := rosterview.VisibleEntries(roster, "u1")
	if len(visible) != 1 || visible[0].UserID != "u2" {
		t.Errorf("Viewer must be filtered out, got %+v", visible)
	}

	if got := rosterview.VisibleEntries(roster, "u9"); len(got) != 2 {
		t.Errorf("Nothing to dedupe for an absent viewer, got %d", len(got))
	}
}
