package models

import "time"

// SyncStatus annotates a local job copy with whether its last mutation has
// been acknowledged by the remote store. It never travels on the wire.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
)

// Role gates destructive actions and PDF export.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleTech  Role = "tech"
)

// Job is a single unit of completed or in-progress maintenance work.
// Timestamps are the ISO-8601 strings the clients exchange; ordering goes
// through EffectiveTime rather than raw string comparison.
type Job struct {
	ID                 string     `json:"id" db:"id"`
	Area               string     `json:"area" db:"area"`
	WorkType           string     `json:"workType" db:"work_type"`
	Description        string     `json:"description" db:"description"`
	AdditionalComments string     `json:"additionalComments" db:"additional_comments"`
	TechnicianName     string     `json:"technicianName" db:"technician_name"`
	Shift              string     `json:"shift" db:"shift"`
	CreatedAt          string     `json:"createdAt" db:"created_at"`
	FinishedAt         string     `json:"finishedAt" db:"finished_at"`
	Signature          string     `json:"signature" db:"signature"`
	BeforePhoto        *string    `json:"beforePhoto" db:"before_photo"`
	AfterPhoto         *string    `json:"afterPhoto" db:"after_photo"`
	Deleted            bool       `json:"deleted" db:"deleted"`
	SyncStatus         SyncStatus `json:"-" db:"sync_status"`
}

type Technician struct {
	ID           string `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	Role         Role   `json:"role" db:"role"`
	Shift        string `json:"shift,omitempty" db:"shift"`
	PasswordHash string `json:"-" db:"password_hash"`
}

// EffectiveTime is the record timestamp used for ordering and conflict
// resolution: finishedAt when parseable, else createdAt, else epoch 0.
func (j Job) EffectiveTime() time.Time {
	if t, err := parseISO(j.FinishedAt); err == nil {
		return t
	}
	if t, err := parseISO(j.CreatedAt); err == nil {
		return t
	}
	return time.Unix(0, 0).UTC()
}

// EqualContent reports whether two jobs carry the same remote-visible
// content. SyncStatus is deliberately ignored.
func (j Job) EqualContent(o Job) bool {
	return j.ID == o.ID &&
		j.Area == o.Area &&
		j.WorkType == o.WorkType &&
		j.Description == o.Description &&
		j.AdditionalComments == o.AdditionalComments &&
		j.TechnicianName == o.TechnicianName &&
		j.Shift == o.Shift &&
		j.CreatedAt == o.CreatedAt &&
		j.FinishedAt == o.FinishedAt &&
		j.Signature == o.Signature &&
		strPtrEqual(j.BeforePhoto, o.BeforePhoto) &&
		strPtrEqual(j.AfterPhoto, o.AfterPhoto) &&
		j.Deleted == o.Deleted
}

func parseISO(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
