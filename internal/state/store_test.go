package state

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/wlanmon/internal/event"
	"github.com/HerbHall/wlanmon/internal/live"
	"github.com/HerbHall/wlanmon/internal/services"
	"github.com/HerbHall/wlanmon/internal/testutil"
	"github.com/HerbHall/wlanmon/pkg/models"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = testutil.NewClock()
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestNew_HoldsSeed(t *testing.T) {
	s := newTestStore(t, Options{})
	snap := s.Snapshot()
	if len(snap.Devices) != 12 {
		t.Errorf("devices = %d, want 12", len(snap.Devices))
	}
	if len(snap.Alerts) != 3 {
		t.Errorf("alerts = %d, want 3", len(snap.Alerts))
	}
	if snap.Filter.ActiveSector != models.SectorAll {
		t.Errorf("ActiveSector = %q, want all", snap.Filter.ActiveSector)
	}
	if snap.Connection.Status != models.ConnectionConnecting {
		t.Errorf("Connection.Status = %q, want connecting", snap.Connection.Status)
	}
}

func TestApply_DeviceUpdateTwiceEqualsOnce(t *testing.T) {
	devices := []models.Device{
		testutil.NewDevice(testutil.WithID("AP-A")),
		testutil.NewDevice(testutil.WithID("AP-B"), testutil.WithSector(models.SectorGovernment)),
	}
	msg := live.Message{Kind: live.KindDeviceUpdate, Devices: devices}

	once := newTestStore(t, Options{})
	once.Apply(msg)

	twice := newTestStore(t, Options{})
	twice.Apply(msg)
	twice.Apply(msg)

	if !reflect.DeepEqual(once.Devices(), twice.Devices()) {
		t.Errorf("devices after two identical updates differ from one update")
	}
	if !reflect.DeepEqual(once.Devices(), devices) {
		t.Errorf("devices = %+v, want %+v", once.Devices(), devices)
	}
}

func TestApply_DeviceUpdateDoesNotAliasPayload(t *testing.T) {
	s := newTestStore(t, Options{})
	devices := []models.Device{testutil.NewDevice(testutil.WithID("AP-A"))}
	s.Apply(live.Message{Kind: live.KindDeviceUpdate, Devices: devices})
	devices[0].ID = "changed"
	if got := s.Devices()[0].ID; got != "AP-A" {
		t.Errorf("stored device id = %q, want AP-A", got)
	}
}

func TestAlertLogKeepsMostRecentCap(t *testing.T) {
	const limit = 5
	s := NewWith(nil, nil, Options{AlertCap: limit, Clock: testutil.NewClock()})
	for i := 1; i <= 12; i++ {
		s.Apply(live.Message{Kind: live.KindAlert, Alert: testutil.NewAlert(testutil.WithAlertID(fmt.Sprintf("ALR-%d", i)))})
	}

	alerts := s.Alerts(0)
	if len(alerts) != limit {
		t.Fatalf("alerts = %d, want %d", len(alerts), limit)
	}
	for i, a := range alerts {
		want := fmt.Sprintf("ALR-%d", 8+i)
		if a.ID != want {
			t.Errorf("alerts[%d].ID = %q, want %q", i, a.ID, want)
		}
	}
	if got := s.Alerts(2); len(got) != 2 || got[1].ID != "ALR-12" {
		t.Errorf("Alerts(2) = %+v, want last two ending with ALR-12", got)
	}
}

func TestReplaceAlertsTruncatesToCap(t *testing.T) {
	s := NewWith(nil, nil, Options{AlertCap: 2, Clock: testutil.NewClock()})
	s.ReplaceAlerts([]models.Alert{
		testutil.NewAlert(testutil.WithAlertID("ALR-1")),
		testutil.NewAlert(testutil.WithAlertID("ALR-2")),
		testutil.NewAlert(testutil.WithAlertID("ALR-3")),
	})
	alerts := s.Alerts(0)
	if len(alerts) != 2 || alerts[0].ID != "ALR-2" || alerts[1].ID != "ALR-3" {
		t.Errorf("alerts = %+v, want ALR-2, ALR-3", alerts)
	}
}

func TestApply_ConnectErrorPostsNoticeOnly(t *testing.T) {
	s := newTestStore(t, Options{})
	before := s.Snapshot()

	s.Apply(live.ConnectError("dial tcp: connection refused"))

	after := s.Snapshot()
	if after.Version != before.Version {
		t.Errorf("version changed from %d to %d", before.Version, after.Version)
	}
	notices := s.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	if notices[0].Level != NoticeError || notices[0].Detail != "dial tcp: connection refused" {
		t.Errorf("notice = %+v, want error with reason", notices[0])
	}
	if after.Connection.LastMessage != string(live.KindConnectError) {
		t.Errorf("LastMessage = %q, want connect_error", after.Connection.LastMessage)
	}
}

func TestApply_HeartbeatAndRawOnlyRecordLastMessage(t *testing.T) {
	clk := testutil.NewClock()
	s := newTestStore(t, Options{Clock: clk})
	v := s.Version()

	s.Apply(live.Message{Kind: live.KindHeartbeat})
	if got := s.Connection().LastMessage; got != "heartbeat" {
		t.Errorf("LastMessage = %q, want heartbeat", got)
	}
	if !s.Connection().LastMessageAt.Equal(clk.Now()) {
		t.Errorf("LastMessageAt = %v, want %v", s.Connection().LastMessageAt, clk.Now())
	}
	s.Apply(live.Normalize([]byte("???")))
	if got := s.Connection().LastMessage; got != "raw" {
		t.Errorf("LastMessage = %q, want raw", got)
	}
	if s.Version() != v {
		t.Errorf("version changed on heartbeat/raw")
	}
	if len(s.Notices()) != 0 {
		t.Errorf("notices = %d, want 0", len(s.Notices()))
	}
}

func TestAppendAlertPostsNotice(t *testing.T) {
	s := newTestStore(t, Options{})
	s.AppendAlert(testutil.NewAlert(
		testutil.WithSeverity(models.SeverityCritical),
		testutil.WithAlertDevice("AP-GOV-001"),
		func(a *models.Alert) { a.Message = "Device went offline" },
	))

	notices := s.Notices()
	if len(notices) != 1 {
		t.Fatalf("notices = %d, want 1", len(notices))
	}
	n := notices[0]
	if n.Title != "New CRITICAL alert" || n.Detail != "Device went offline on AP-GOV-001" || n.Level != NoticeError {
		t.Errorf("notice = %+v", n)
	}
}

func TestNoticesBounded(t *testing.T) {
	s := NewWith(nil, nil, Options{NoticeCap: 3, Clock: testutil.NewClock()})
	for i := 0; i < 5; i++ {
		s.PostNotice(NoticeInfo, fmt.Sprintf("n%d", i), "")
	}
	notices := s.Notices()
	if len(notices) != 3 || notices[0].Title != "n2" || notices[2].Title != "n4" {
		t.Errorf("notices = %+v, want n2..n4", notices)
	}
}

func TestSetConnectionKeepsLastMessage(t *testing.T) {
	s := newTestStore(t, Options{})
	s.Apply(live.Message{Kind: live.KindHeartbeat})
	s.SetConnection(models.ConnectionState{Status: models.ConnectionError, ReconnectAttempt: 2})

	c := s.Connection()
	if c.Status != models.ConnectionError || c.ReconnectAttempt != 2 {
		t.Errorf("connection = %+v, want error attempt 2", c)
	}
	if c.LastMessage != "heartbeat" {
		t.Errorf("LastMessage = %q, want heartbeat", c.LastMessage)
	}
}

func TestUpdateFilter(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	f, err := s.UpdateFilter(ctx, FilterPatch{Sector: ptr("Logistics"), Search: ptr("dock")})
	if err != nil {
		t.Fatalf("UpdateFilter: %v", err)
	}
	if f.ActiveSector != models.SectorFilter(models.SectorLogistics) || f.SearchTerm != "dock" {
		t.Errorf("filter = %+v", f)
	}

	_, err = s.UpdateFilter(ctx, FilterPatch{Sector: ptr("mining")})
	if !errors.Is(err, models.ErrInvalidSector) {
		t.Errorf("invalid sector error = %v, want ErrInvalidSector", err)
	}
	if got := s.Filter().ActiveSector; got != models.SectorFilter(models.SectorLogistics) {
		t.Errorf("ActiveSector after invalid update = %q, want logistics", got)
	}

	s.SelectDevice("AP-GONE-999")
	if got := s.Filter().SelectedDeviceID; got != "AP-GONE-999" {
		t.Errorf("SelectedDeviceID = %q, want dangling id kept", got)
	}
	s.SetSearch("")
	if got := s.Filter().SearchTerm; got != "" {
		t.Errorf("SearchTerm = %q, want empty", got)
	}
}

func TestSectorPreferencePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewStore(t)
	prefs, err := services.NewSQLSettingsRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLSettingsRepository: %v", err)
	}

	first := newTestStore(t, Options{Prefs: prefs})
	if err := first.SetSector(ctx, models.SectorFilter(models.SectorHealthcare)); err != nil {
		t.Fatalf("SetSector: %v", err)
	}
	setting, err := prefs.Get(ctx, SectorPreferenceKey)
	if err != nil {
		t.Fatalf("prefs.Get: %v", err)
	}
	if setting.Value != "healthcare" {
		t.Errorf("persisted sector = %q, want healthcare", setting.Value)
	}

	second := newTestStore(t, Options{Prefs: prefs})
	second.Restore(ctx)
	if got := second.Filter().ActiveSector; got != models.SectorFilter(models.SectorHealthcare) {
		t.Errorf("restored sector = %q, want healthcare", got)
	}
}

func TestRestoreIgnoresInvalidPreference(t *testing.T) {
	ctx := context.Background()
	prefs, err := services.NewSQLSettingsRepository(ctx, testutil.NewStore(t))
	if err != nil {
		t.Fatalf("NewSQLSettingsRepository: %v", err)
	}
	if err := prefs.Set(ctx, SectorPreferenceKey, "bogus"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	s := newTestStore(t, Options{Prefs: prefs})
	s.Restore(ctx)
	if got := s.Filter().ActiveSector; got != models.SectorAll {
		t.Errorf("ActiveSector = %q, want all", got)
	}
}

func TestRestoreFromCache(t *testing.T) {
	ctx := context.Background()
	cache, err := services.NewSQLSnapshotRepository(ctx, testutil.NewStore(t))
	if err != nil {
		t.Fatalf("NewSQLSnapshotRepository: %v", err)
	}

	first := newTestStore(t, Options{Cache: cache})
	first.ReplaceDevices([]models.Device{testutil.NewDevice(testutil.WithID("AP-CACHED"))})
	if err := first.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second := newTestStore(t, Options{Cache: cache})
	second.Restore(ctx)
	devices := second.Devices()
	if len(devices) != 1 || devices[0].ID != "AP-CACHED" {
		t.Errorf("devices = %+v, want cached AP-CACHED", devices)
	}
	if got := len(second.Alerts(0)); got != 3 {
		t.Errorf("alerts = %d, want 3 from cache", got)
	}
}

func TestEventsPublishedInOrder(t *testing.T) {
	bus := testutil.NewMockBus()
	s := newTestStore(t, Options{Events: bus})

	s.ReplaceDevices(nil)
	s.AppendAlert(testutil.NewAlert())
	s.SetConnection(models.ConnectionState{Status: models.ConnectionConnected})
	s.SetSearch("edu")

	want := []string{
		event.TopicDevicesReplaced,
		event.TopicAlertAppended,
		event.TopicNoticePosted,
		event.TopicConnectionChanged,
		event.TopicFilterChanged,
	}
	if got := bus.Topics(); !reflect.DeepEqual(got, want) {
		t.Errorf("topics = %v, want %v", got, want)
	}
	for _, e := range bus.Events() {
		if e.Source != "state" || e.Timestamp.IsZero() {
			t.Errorf("event %q source=%q timestamp=%v", e.Topic, e.Source, e.Timestamp)
		}
	}
}

func TestUnchangedFilterPublishesNothing(t *testing.T) {
	bus := testutil.NewMockBus()
	s := newTestStore(t, Options{Events: bus})
	s.SetSearch("")
	s.SetConnection(models.ConnectionState{Status: models.ConnectionConnecting})
	if n := len(bus.Events()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestMutationsAfterCloseAreNoOps(t *testing.T) {
	bus := testutil.NewMockBus()
	s := newTestStore(t, Options{Events: bus})
	before := s.Snapshot()
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	s.ReplaceDevices(nil)
	s.AppendAlert(testutil.NewAlert())
	s.Apply(live.ConnectError("late"))
	s.SetConnection(models.ConnectionState{Status: models.ConnectionConnected})
	if _, err := s.UpdateFilter(context.Background(), FilterPatch{Search: ptr("x")}); !errors.Is(err, ErrClosed) {
		t.Errorf("UpdateFilter after Close = %v, want ErrClosed", err)
	}

	if !reflect.DeepEqual(s.Snapshot(), before) {
		t.Error("snapshot changed after Close")
	}
	if len(s.Notices()) != 0 || len(bus.Events()) != 0 {
		t.Error("notices or events produced after Close")
	}
}

func TestApply_KeepsLastNormalizedMessage(t *testing.T) {
	s := newTestStore(t, Options{})
	if got := s.LastMessage().Kind; got != "" {
		t.Fatalf("LastMessage().Kind = %q before any message, want empty", got)
	}

	alert := testutil.NewAlert(testutil.WithAlertID("ALR-LAST"))
	s.Apply(live.Message{Kind: live.KindAlert, Alert: alert})
	last := s.LastMessage()
	if last.Kind != live.KindAlert || last.Alert.ID != "ALR-LAST" {
		t.Errorf("LastMessage() = %+v, want the alert message", last)
	}

	frame := []byte("not json")
	s.Apply(live.Normalize(frame))
	frame[0] = 'X'
	last = s.LastMessage()
	if last.Kind != live.KindRaw || string(last.Raw) != "not json" {
		t.Errorf("LastMessage() = kind %q raw %q, want raw %q", last.Kind, last.Raw, "not json")
	}

	last.Raw[0] = 'Y'
	if got := string(s.LastMessage().Raw); got != "not json" {
		t.Errorf("LastMessage().Raw = %q after caller mutation, want unchanged", got)
	}
}
