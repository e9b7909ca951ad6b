package protocol

// Client-to-server event names.
const (
	EventUserRegister    = "user:register"
	EventActivityUpdate  = "activity:update"
	EventPatientSelect   = "patient:select"
	EventAnamnesaUpdate  = "anamnesa:update"
	EventPhysicalUpdate  = "physical:update"
	EventUSGUpdate       = "usg:update"
	EventLabUpdate       = "lab:update"
	EventBillingUpdate   = "billing:update"
	EventVisitComplete   = "visit:complete"
	EventAnnouncementNew = "announcement:new"
	EventUsersGetList    = "users:get-list"
)

// Server-to-client event names.
const (
	EventUsersList        = "users:list"
	EventUserConnected    = "user:connected"
	EventUserDisconnected = "user:disconnected"
	EventUserActivity     = "user:activity"
	EventPatientSelected  = "patient:selected"
	EventAnamnesaUpdated  = "anamnesa:updated"
	EventPhysicalUpdated  = "physical:updated"
	EventUSGUpdated       = "usg:updated"
	EventLabUpdated       = "lab:updated"
	EventBillingUpdated   = "billing:updated"
	EventVisitCompleted   = "visit:completed"
)

// Default activity strings shown in the roster.
const (
	ActivityJoined = "Baru bergabung"
	ActivityIdle   = "Idle"
)

var echoEvents = map[string]string{
	EventPatientSelect:  EventPatientSelected,
	EventAnamnesaUpdate: EventAnamnesaUpdated,
	EventPhysicalUpdate: EventPhysicalUpdated,
	EventUSGUpdate:      EventUSGUpdated,
	EventLabUpdate:      EventLabUpdated,
	EventBillingUpdate:  EventBillingUpdated,
	EventVisitComplete:  EventVisitCompleted,
}

// EchoEvent maps a client channel to the past-tense channel its payload is
// relayed on.
func EchoEvent(event string) (string, bool) {
	echo, ok := echoEvents[event]
	return echo, ok
}

var activityTemplates = map[string]string{
	EventAnamnesaUpdate: "Mengisi anamnesa: ",
	EventPhysicalUpdate: "Mengisi pemeriksaan fisik: ",
	EventUSGUpdate:      "Mengisi USG: ",
	EventLabUpdate:      "Mengisi pemeriksaan penunjang: ",
	EventBillingUpdate:  "Memperbarui billing: ",
}

// ActivityFor returns the roster activity string synthesized for a clinical
// update channel. Only the five section-update channels carry one.
func ActivityFor(event, patientName string) (string, bool) {
	prefix, ok := activityTemplates[event]
	if !ok {
		return "", false
	}
	return prefix + patientName, true
}
