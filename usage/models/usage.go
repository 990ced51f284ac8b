package models

import (
	"time"
)

// BadgeCategory for milestone grants over cumulative chat hours.
const CategoryUsageHours = "usage_hours"

// Milestone is one badge threshold over cumulative usage hours.
type Milestone struct {
	Hours float64
	Tier  string
}

// Milestones lists the ordered thresholds. Each tier is granted at most
// once, ever, per owner.
var Milestones = []Milestone{
	{Hours: 10, Tier: "bronze"},
	{Hours: 25, Tier: "silver"},
	{Hours: 50, Tier: "gold"},
	{Hours: 100, Tier: "platinum"},
	{Hours: 250, Tier: "diamond"},
}

// UsageStats holds the per-owner counters: cumulative hours, current streak
// of consecutive active days, and the monotonically non-decreasing count of
// distinct active days.
type UsageStats struct {
	OwnerID       uint      `gorm:"primaryKey" json:"owner_id"`
	TotalHours    float64   `json:"total_hours"`
	Streak        int       `json:"streak"`
	DaysUsed      int       `json:"days_used"`
	LastActiveDay time.Time `json:"last_active_day"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BadgeGrant records a milestone grant. The unique index over
// (owner_id, category, tier) is what makes granting idempotent.
type BadgeGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   uint      `gorm:"uniqueIndex:idx_badge_owner_cat_tier" json:"owner_id"`
	Category  string    `gorm:"uniqueIndex:idx_badge_owner_cat_tier" json:"category"`
	Tier      string    `gorm:"uniqueIndex:idx_badge_owner_cat_tier" json:"tier"`
	GrantedAt time.Time `json:"granted_at"`
}
