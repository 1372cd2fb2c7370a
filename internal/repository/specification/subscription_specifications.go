package specification

import (
	"time"

	"gorm.io/gorm"
)

type ByStatus struct {
	Statuses []string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Statuses) == 1 {
		return db.Where("status = ?", s.Statuses[0])
	}
	return db.Where("status IN ?", s.Statuses)
}

// ExpiresBefore matches expires_at strictly before the instant.
type ExpiresBefore struct {
	Instant time.Time
}

func (s ExpiresBefore) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at < ?", s.Instant)
}

// ExpiresBetween matches From <= expires_at <= To.
type ExpiresBetween struct {
	From time.Time
	To   time.Time
}

func (s ExpiresBetween) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("expires_at >= ? AND expires_at <= ?", s.From, s.To)
}

type ByReference struct {
	Reference string
}

func (s ByReference) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("reference = ?", s.Reference)
}

type BySlug struct {
	Slug string
}

func (s BySlug) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("slug = ?", s.Slug)
}
