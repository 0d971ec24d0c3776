package repository

import "time"

// User is a citizen account holding spendable points and ranking score.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	Email        string    `gorm:"column:email;size:255;index" json:"email"`
	Name         string    `gorm:"column:name;size:255" json:"name"`
	Point        int       `gorm:"column:point;not null;default:0" json:"point"`
	Score        int       `gorm:"column:score;not null;default:0" json:"score"`
	ProfileImage string    `gorm:"column:profile_image;type:text" json:"profile_image,omitempty"`
	Address      string    `gorm:"column:address;type:text" json:"address,omitempty"`
	PhoneNumber  string    `gorm:"column:phone_number;size:32" json:"phone_number,omitempty"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the default table name.
func (User) TableName() string { return "users" }

// Notification types.
const (
	NotificationReward = "reward"
	NotificationRedeem = "redeem"
	NotificationReport = "report"
)

// Notification is a message shown to a user. Only the read flag changes
// after creation.
type Notification struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"column:user_id;size:64;index" json:"user_id"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
	Type      string    `gorm:"column:type;size:32" json:"type"`
	IsRead    bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName overrides the default table name.
func (Notification) TableName() string { return "notifications" }

// ReportStatus is the lifecycle state of a litter report.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in_progress"
	ReportCompleted  ReportStatus = "completed"
	ReportVerified   ReportStatus = "verified"
)

// Report is a user-submitted sighting of litter awaiting collection.
type Report struct {
	ID          string       `gorm:"primaryKey;size:64" json:"id"`
	UserID      string       `gorm:"column:user_id;size:64;index" json:"user_id"`
	Location    string       `gorm:"column:location;type:text" json:"location"`
	Latitude    *float64     `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude   *float64     `gorm:"column:longitude" json:"longitude,omitempty"`
	TrashType   string       `gorm:"column:trash_type;size:255" json:"trash_type"`
	Quantity    string       `gorm:"column:quantity;size:64" json:"quantity"`
	Status      ReportStatus `gorm:"column:status;size:32;index;not null" json:"status"`
	CollectorID *string      `gorm:"column:collector_id;size:64;index" json:"collector_id,omitempty"`
	ImageURL    string       `gorm:"column:image_url;type:text" json:"image_url"`
	VerifiedAt  *time.Time   `gorm:"column:verified_at" json:"verified_at,omitempty"`
	CreatedAt   time.Time    `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the default table name.
func (Report) TableName() string { return "reports" }

// Reward is a catalog item that can be bought with points.
type Reward struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"column:name;size:255" json:"name"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Cost        int       `gorm:"column:cost;not null" json:"cost"`
	Active      bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the default table name.
func (Reward) TableName() string { return "rewards" }

// Redemption records points spent on a reward.
type Redemption struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    string    `gorm:"column:user_id;size:64;index" json:"user_id"`
	RewardID  string    `gorm:"column:reward_id;size:64" json:"reward_id"`
	Points    int       `gorm:"column:points" json:"points"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the default table name.
func (Redemption) TableName() string { return "redemptions" }

// VerificationLog represents a persisted verification request.
type VerificationLog struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	RequestID string    `gorm:"column:request_id;uniqueIndex;size:64" json:"request_id"`
	UserID    string    `gorm:"column:user_id;size:64;index" json:"user_id"`
	ReportID  string    `gorm:"column:report_id;size:64" json:"report_id,omitempty"`
	Mode      string    `gorm:"column:mode;size:16" json:"mode"`
	Score     float32   `gorm:"column:score" json:"score"`
	Success   bool      `gorm:"column:success" json:"success"`
	Details   string    `gorm:"column:details;type:text" json:"details"`
	SHA1Hash  string    `gorm:"column:sha1_hash;size:40;index" json:"sha1_hash"`
	LatencyMs int64     `gorm:"column:latency_ms" json:"latency_ms"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the default table name.
func (VerificationLog) TableName() string { return "verification_logs" }
