package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/pkg/models"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if db == nil {
		t.Fatal("expected non-nil store")
	}
	if err := db.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestMockBus_RecordsEvents(t *testing.T) {
	bus := NewMockBus()

	ev := event.Event{Topic: event.TopicAlertAppended, Source: "test"}
	if err := bus.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	bus.PublishAsync(context.Background(), event.Event{Topic: event.TopicNoticePosted, Source: "test"})

	events := bus.Events()
	if len(events) != 2 {
		t.Fatalf("Events len = %d, want 2", len(events))
	}
	if events[0].Topic != event.TopicAlertAppended {
		t.Errorf("events[0].Topic = %q, want %q", events[0].Topic, event.TopicAlertAppended)
	}
	if events[1].Topic != event.TopicNoticePosted {
		t.Errorf("events[1].Topic = %q, want %q", events[1].Topic, event.TopicNoticePosted)
	}
}

func TestMockBus_Reset(t *testing.T) {
	bus := NewMockBus()
	_ = bus.Publish(context.Background(), event.Event{Topic: "a"})
	bus.Reset()
	if len(bus.Events()) != 0 {
		t.Error("expected empty events after Reset")
	}
}

func TestClock_Advance(t *testing.T) {
	c := NewClock()
	start := c.Now()
	c.Advance(5 * time.Minute)
	if got := c.Now().Sub(start); got != 5*time.Minute {
		t.Errorf("Advance: elapsed = %v, want 5m", got)
	}
}

func TestClock_Set(t *testing.T) {
	c := NewClock()
	target := time.Date(2030, 6, 15, 12, 0, 0, 0, time.UTC)
	c.Set(target)
	if !c.Now().Equal(target) {
		t.Errorf("Set: got %v, want %v", c.Now(), target)
	}
}

func TestClock_AfterFuncFiresInOrder(t *testing.T) {
	c := NewClock()
	var got []int
	c.AfterFunc(3*time.Second, func() { got = append(got, 3) })
	c.AfterFunc(1*time.Second, func() { got = append(got, 1) })
	stopped := c.AfterFunc(2*time.Second, func() { got = append(got, 2) })
	if !stopped.Stop() {
		t.Fatal("Stop on pending timer = false, want true")
	}

	c.Advance(2 * time.Second)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("after 2s fired = %v, want [1]", got)
	}
	c.Advance(time.Second)
	if len(got) != 2 || got[1] != 3 {
		t.Fatalf("after 3s fired = %v, want [1 3]", got)
	}
	if n := len(c.Pending()); n != 0 {
		t.Errorf("Pending = %d, want 0", n)
	}
}

func TestClock_TimerScheduledDuringAdvance(t *testing.T) {
	c := NewClock()
	fired := 0
	var tick func()
	tick = func() {
		fired++
		c.AfterFunc(time.Second, tick)
	}
	c.AfterFunc(time.Second, tick)

	c.Advance(3 * time.Second)
	if fired != 3 {
		t.Errorf("fired = %d, want 3", fired)
	}
}

func TestNewDevice_Defaults(t *testing.T) {
	d := NewDevice()
	if d.ID == "" {
		t.Error("expected non-empty ID")
	}
	if d.Status != models.DeviceStatusOnline {
		t.Errorf("Status = %q, want online", d.Status)
	}
	if d.Degraded() {
		t.Error("default fixture should not be degraded")
	}
}

func TestNewDevice_WithOptions(t *testing.T) {
	d := NewDevice(
		WithID("AP-LOG-001"),
		WithSector(models.SectorLogistics),
		WithStatus(models.DeviceStatusOffline),
	)
	if d.ID != "AP-LOG-001" {
		t.Errorf("ID = %q, want AP-LOG-001", d.ID)
	}
	if d.Sector != models.SectorLogistics {
		t.Errorf("Sector = %q, want logistics", d.Sector)
	}
	if d.Status != models.DeviceStatusOffline {
		t.Errorf("Status = %q, want offline", d.Status)
	}
}

func TestNewAlert_WithOptions(t *testing.T) {
	a := NewAlert(WithAlertID("ALR-9"), WithSeverity(models.SeverityCritical))
	if a.ID != "ALR-9" || a.Severity != models.SeverityCritical {
		t.Errorf("alert = %+v, want id ALR-9 severity critical", a)
	}
}
