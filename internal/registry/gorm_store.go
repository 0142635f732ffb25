package registry

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRecord is the table row. The composite primary key gives the
// per-row upsert; the two named indexes serve the secondary lookups.
type subscriptionRecord struct {
	ConnectionID string `gorm:"primaryKey;size:128;index:lookup_by_connection"`
	Channel      string `gorm:"primaryKey;size:191;index:lookup_by_channel"`
	UserData     string `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (subscriptionRecord) TableName() string {
	return "subscriptions"
}

func (rec subscriptionRecord) subscription() Subscription {
	return Subscription{ConnectionID: rec.ConnectionID, Channel: rec.Channel, UserData: rec.UserData}
}

// GormStore keeps rows in a SQL table through gorm. It works with any
// dialect that supports ON CONFLICT or ON DUPLICATE KEY upserts.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the subscriptions table and its indexes.
func (g *GormStore) Migrate(ctx context.Context) error {
	return g.db.WithContext(ctx).AutoMigrate(&subscriptionRecord{})
}

func (g *GormStore) Put(ctx context.Context, sub Subscription) error {
	rec := subscriptionRecord{
		ConnectionID: sub.ConnectionID,
		Channel:      sub.Channel,
		UserData:     sub.UserData,
	}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "connection_id"}, {Name: "channel"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_data", "updated_at"}),
	}).Create(&rec).Error
}

func (g *GormStore) Delete(ctx context.Context, connectionID, channel string) error {
	return g.db.WithContext(ctx).
		Where("connection_id = ? AND channel = ?", connectionID, channel).
		Delete(&subscriptionRecord{}).Error
}

func (g *GormStore) ByConnection(ctx context.Context, connectionID string) ([]Subscription, error) {
	var recs []subscriptionRecord
	err := g.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("channel").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toSubscriptions(recs), nil
}

func (g *GormStore) ByChannel(ctx context.Context, channel string) ([]Subscription, error) {
	var recs []subscriptionRecord
	err := g.db.WithContext(ctx).
		Where("channel = ?", channel).
		Order("connection_id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return toSubscriptions(recs), nil
}

func (g *GormStore) DeleteConnection(ctx context.Context, connectionID string) error {
	return g.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Delete(&subscriptionRecord{}).Error
}

func toSubscriptions(recs []subscriptionRecord) []Subscription {
	subs := make([]Subscription, 0, len(recs))
	for _, rec := range recs {
		subs = append(subs, rec.subscription())
	}
	return subs
}
