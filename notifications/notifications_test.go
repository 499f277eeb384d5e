package notifications

import (
	"sync"
	"testing"
	"time"

	"github.com/RikyDRC/agro-sense-control-hub-sub001/db"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/models"
	"github.com/RikyDRC/agro-sense-control-hub-sub001/realtime"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingConn struct {
	mu sync.Mutex
	n  int
}

func (c *countingConn) WriteMessage(int, []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return nil
}

func (c *countingConn) SetWriteDeadline(time.Time) error { return nil }

func (c *countingConn) Close() error { return nil }

func (c *countingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type population struct {
	db       *gorm.DB
	admin    models.Profile
	farmer   models.Profile
	premium  models.Profile
	lapsed   models.Profile
	everyone int
}

func setup(t *testing.T) *population {
	t.Helper()
	gdb, err := db.OpenMemory("notif_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, db.SeedPlans(gdb))

	p := &population{db: gdb}
	mk := func(role, tier string) models.Profile {
		prof := models.Profile{Email: uuid.NewString() + "@example.com", Role: role, SubscriptionTier: tier}
		require.NoError(t, gdb.Create(&prof).Error)
		return prof
	}
	p.admin = mk(models.RoleSuperAdmin, models.PlanFree)
	p.farmer = mk(models.RoleFarmer, models.PlanFree)
	p.premium = mk(models.RoleFarmer, models.PlanPremium)
	p.lapsed = mk(models.RoleFarmer, models.PlanBasic)
	p.everyone = 4

	var plan models.SubscriptionPlan
	require.NoError(t, gdb.Where("slug = ?", models.PlanPremium).First(&plan).Error)
	end := time.Now().Add(24 * time.Hour)
	require.NoError(t, gdb.Create(&models.Subscription{UserID: p.premium.ID, PlanID: plan.ID, Status: models.SubscriptionActive, CurrentPeriodEnd: &end}).Error)
	require.NoError(t, gdb.Create(&models.Subscription{UserID: p.lapsed.ID, PlanID: plan.ID, Status: models.SubscriptionCanceled}).Error)
	return p
}

func TestSend(t *testing.T) {
	p := setup(t)
	hub := realtime.NewHub()
	conn := &countingConn{}
	hub.Register(p.farmer.ID, conn)

	n := &models.Notification{UserID: p.farmer.ID, Title: "Valve opened", Message: "Zone A"}
	require.NoError(t, Send(p.db, hub, n))
	assert.NotEqual(t, uuid.Nil, n.ID)
	assert.Equal(t, models.NotificationInfo, n.Type)
	assert.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, Send(p.db, nil, &models.Notification{UserID: p.farmer.ID, Title: "offline"}))
	var stored int64
	require.NoError(t, p.db.Model(&models.Notification{}).Where("user_id = ?", p.farmer.ID).Count(&stored).Error)
	assert.Equal(t, int64(2), stored)
}

func TestResolveAudience(t *testing.T) {
	p := setup(t)
	tests := []struct {
		audience string
		want     []uuid.UUID
	}{
		{models.AudienceAll, []uuid.UUID{p.admin.ID, p.farmer.ID, p.premium.ID, p.lapsed.ID}},
		{models.AudienceAdmins, []uuid.UUID{p.admin.ID}},
		{models.AudienceFarmers, []uuid.UUID{p.farmer.ID, p.premium.ID, p.lapsed.ID}},
		{models.AudienceSubscribers, []uuid.UUID{p.premium.ID}},
		{models.PlanPremium, []uuid.UUID{p.premium.ID}},
		{models.PlanEnterprise, nil},
	}
	for _, tt := range tests {
		t.Run(tt.audience, func(t *testing.T) {
			got, err := ResolveAudience(p.db, tt.audience)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}

	_, err := ResolveAudience(p.db, "martians")
	assert.ErrorIs(t, err, ErrUnknownAudience)
}

func TestBroadcast(t *testing.T) {
	p := setup(t)
	hub := realtime.NewHub()
	conn := &countingConn{}
	hub.Register(p.premium.ID, conn)

	msg := &models.BroadcastMessage{SenderID: p.admin.ID, Title: "Maintenance", Message: "Tonight 22:00"}
	require.NoError(t, Broadcast(p.db, hub, msg))

	assert.Equal(t, models.AudienceAll, msg.TargetAudience)
	assert.Equal(t, models.NotificationBroadcast, msg.Type)
	assert.Equal(t, p.everyone, msg.RecipientCount)
	assert.False(t, msg.SentAt.IsZero())
	assert.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, time.Millisecond)

	var rows []models.Notification
	require.NoError(t, p.db.Where("broadcast_id = ?", msg.ID).Find(&rows).Error)
	assert.Len(t, rows, p.everyone)
	for _, r := range rows {
		assert.Equal(t, "Maintenance", r.Title)
		assert.False(t, r.IsRead)
	}
}

func TestBroadcastUnknownAudienceWritesNothing(t *testing.T) {
	p := setup(t)
	err := Broadcast(p.db, nil, &models.BroadcastMessage{Title: "x", Message: "y", TargetAudience: "nobody"})
	assert.ErrorIs(t, err, ErrUnknownAudience)

	var n int64
	require.NoError(t, p.db.Model(&models.BroadcastMessage{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestBroadcastEmptyAudience(t *testing.T) {
	p := setup(t)
	msg := &models.BroadcastMessage{Title: "x", Message: "y", TargetAudience: models.PlanEnterprise}
	require.NoError(t, Broadcast(p.db, nil, msg))
	assert.Zero(t, msg.RecipientCount)

	var n int64
	require.NoError(t, p.db.Model(&models.Notification{}).Count(&n).Error)
	assert.Zero(t, n)
}
