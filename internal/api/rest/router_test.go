package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/repository/alarms"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
)

const shipJSON = `{"mmsi":257000001,"latitude":59.9,"longitude":10.7,"heading":90,` +
	`"speed_over_ground":3.1,"navigational_status":0,"name":"NORNE","destination":"OSLO",` +
	`"last_seen":"2026-10-16T12:00:00Z"}`

type fixture struct {
	server *httptest.Server
	ships  *snapshot.FileRepository
	alarms *alarms.FileRepository
}

func newFixture(t *testing.T, opts ...snapshot.Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	now := time.Date(2026, 10, 16, 12, 30, 0, 0, time.UTC)

	opts = append([]snapshot.Option{snapshot.WithClock(func() time.Time { return now })}, opts...)

	f := &fixture{
		ships:  snapshot.NewFileRepository(filepath.Join(dir, "ships.json"), opts...),
		alarms: alarms.NewFileRepository(filepath.Join(dir, "alarms.json")),
	}

	f.server = httptest.NewServer(NewRouter(context.Background(), Dependencies{
		Ships:     f.ships,
		Alarms:    f.alarms,
		Tracked:   func() int { return 7 },
		RateLimit: config.RateLimit{Requests: 1000, Window: time.Minute},
	}))
	t.Cleanup(f.server.Close)

	return f
}

func (f *fixture) postForm(t *testing.T, kind, data string) (int, string) {
	t.Helper()

	resp, err := http.PostForm(f.server.URL+"/receive", url.Values{"type": {kind}, "json_data": {data}})
	require.NoError(t, err)

	return readResponse(t, resp)
}

func (f *fixture) get(t *testing.T, path string) (int, string) {
	t.Helper()

	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)

	return readResponse(t, resp)
}

func readResponse(t *testing.T, resp *http.Response) (int, string) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestReceiveShipsForm(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	status, body := f.postForm(t, TypeShips, shipJSON)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, msgShipsReceived, body)

	all, err := f.ships.GetAll(context.Background())
	require.NoError(t, err)
	require.Contains(t, all, int64(257000001))
	require.Equal(t, "NORNE", all[257000001].Name)

	status, body = f.get(t, "/receive?type=ships")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"257000001"`)
}

func TestReceiveShipsJSONBatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	second := strings.Replace(shipJSON, "257000001", "257000002", 1)

	resp, err := http.Post(f.server.URL+"/receive?type=ships", "application/json",
		strings.NewReader("["+shipJSON+","+second+"]"))
	require.NoError(t, err)

	status, _ := readResponse(t, resp)
	require.Equal(t, http.StatusOK, status)

	all, err := f.ships.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestReceiveRejectsInvalidPayloads(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	tests := []struct {
		name string
		kind string
		data string
		want string
	}{
		{name: "unknown type", kind: "boats", data: shipJSON, want: msgInvalidType},
		{name: "malformed json", kind: TypeShips, data: "{", want: msgInvalidData},
		{name: "missing mmsi", kind: TypeShips, data: `{"last_seen":"2026-10-16T12:00:00Z"}`, want: msgInvalidData},
		{name: "empty data", kind: TypeShips, data: "", want: msgInvalidData},
		{name: "unknown reason", kind: TypeAlarms, data: `{"mmsi":1,"reason":"BORED","time":"2026-10-16T12:00:00Z"}`, want: msgInvalidData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.postForm(t, tt.kind, tt.data)
			require.Equal(t, http.StatusBadRequest, status)
			require.Equal(t, tt.want, body)
		})
	}

	raw, err := f.ships.Raw(context.Background())
	require.NoError(t, err)
	require.Equal(t, "{}", string(raw))
}

func TestReceiveShipsCapacityExceeded(t *testing.T) {
	t.Parallel()

	f := newFixture(t, snapshot.WithMaxSize(64))

	status, body := f.postForm(t, TypeShips, shipJSON)
	require.Equal(t, http.StatusRequestEntityTooLarge, status)
	require.Equal(t, msgCapacity, body)
}

func TestReceiveAlarmsAndRecent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	status, body := f.get(t, "/receive?type=alarms")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, "[]", body)

	base := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	for i := range 6 {
		fired := alarm.Alarm{
			Name:   "NORNE",
			MMSI:   int64(257000001 + i),
			Reason: alarm.ReasonInactive,
			Time:   base.Add(time.Duration(i) * time.Minute),
		}

		data, err := json.Marshal(fired)
		require.NoError(t, err)

		status, body = f.postForm(t, TypeAlarms, string(data))
		require.Equal(t, http.StatusOK, status)
		require.Equal(t, msgAlarmsReceived, body)
	}

	status, body = f.get(t, "/api/v1/alarms/recent")
	require.Equal(t, http.StatusOK, status)

	var recent []alarm.Alarm
	require.NoError(t, json.Unmarshal([]byte(body), &recent))
	require.Len(t, recent, DefaultRecentAlarms)
	require.Equal(t, int64(257000003), recent[0].MMSI)
	require.Equal(t, int64(257000006), recent[3].MMSI)
	require.NotEmpty(t, recent[0].ID)

	status, _ = f.get(t, "/api/v1/alarms/recent?n=0")
	require.Equal(t, http.StatusBadRequest, status)

	status, body = f.get(t, "/receive?type=alarms")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal([]byte(body), &recent))
	require.Len(t, recent, 6)
}

func TestReadUnknownType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	status, body := f.get(t, "/receive?type=boats")
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, msgInvalidType, body)
}

func TestTrackedAndHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	status, body := f.get(t, "/api/v1/vessels/tracked")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"tracked":7}`, body)

	status, body = f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"status":"ok"`)

	status, body = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "maritime_alarm_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	req, err := http.NewRequest(http.MethodOptions, f.server.URL+"/receive", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://display.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	server := httptest.NewServer(NewRouter(context.Background(), Dependencies{
		Ships:     snapshot.NewFileRepository(filepath.Join(dir, "ships.json")),
		Alarms:    alarms.NewFileRepository(filepath.Join(dir, "alarms.json")),
		RateLimit: config.RateLimit{Requests: 1, Window: time.Hour},
	}))
	t.Cleanup(server.Close)

	codes := make([]int, 0, 2)
	for range 2 {
		resp, err := http.PostForm(server.URL+"/receive", url.Values{"type": {"boats"}, "json_data": {"{}"}})
		require.NoError(t, err)

		status, _ := readResponse(t, resp)
		codes = append(codes, status)
	}

	require.Equal(t, []int{http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestDecodeReports(t *testing.T) {
	t.Parallel()

	single, err := decodeReports([]byte(shipJSON))
	require.NoError(t, err)
	require.Len(t, single, 1)
	require.True(t, single[0].LastSeen.Equal(time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)))

	_, err = decodeReports([]byte("[]"))
	require.ErrorIs(t, err, errEmptyPayload)
}
