package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/maritimalarm/maritime-alarm/internal/config"
	"github.com/maritimalarm/maritime-alarm/internal/domain/vessel"
	"github.com/maritimalarm/maritime-alarm/internal/repository/snapshot"
)

var streamNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

type collector struct {
	mu      sync.Mutex
	reports []vessel.Report
	onPush  func(n int)
}

func (c *collector) Publish(_ context.Context, report vessel.Report) error {
	c.mu.Lock()
	c.reports = append(c.reports, report)
	n := len(c.reports)
	c.mu.Unlock()

	if c.onPush != nil {
		c.onPush(n)
	}

	return nil
}

func (c *collector) all() []vessel.Report {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]vessel.Report(nil), c.reports...)
}

// provider fakes the OAuth2 token endpoint and the AIS stream.
func provider(t *testing.T, lines func(conn int) []string) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var conns atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req streamRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Full", req.ModelType)
		assert.Equal(t, []string{"RU"}, req.CountryCodes)

		n := int(conns.Add(1))
		for _, line := range lines(n) {
			_, _ = io.WriteString(w, line+"\n")
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, &conns
}

func newTestConsumer(server *httptest.Server, publisher Publisher) *Consumer {
	credentials := clientcredentials.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
	}

	return NewConsumer(ConsumerOptions{
		Client:            credentials.Client(context.Background()),
		StreamURL:         server.URL + "/stream",
		CountryCodes:      []string{"RU"},
		Filter:            NewFilter([]int64{257000001}, []string{"RU"}),
		Publisher:         publisher,
		ReconnectInterval: time.Millisecond,
		Clock:             func() time.Time { return streamNow },
	})
}

func TestConsumer_StreamFiltersAndMaps(t *testing.T) {
	t.Parallel()

	server, _ := provider(t, func(int) []string {
		return []string{
			`{"mmsi":273000001,"countryCode":"RU","latitude":69.7,"longitude":30.1,` +
				`"navigationalStatus":0,"speedOverGround":3.2,"trueHeading":180,"name":"VOLNA","destination":"MURMANSK"}`,
			`{"mmsi":259000001,"countryCode":"NO","latitude":60,"longitude":5}`,
			`not json`,
			``,
			`{"mmsi":257000001,"countryCode":"PA","latitude":59,"longitude":10,"navigationalStatus":1}`,
			`{"mmsi":273000001,"countryCode":"RU","speedOverGround":4.5}`,
		}
	})

	published := new(collector)
	consumer := newTestConsumer(server, published)

	err := consumer.stream(context.Background())
	require.ErrorIs(t, err, errStreamEnded)

	reports := published.all()
	require.Len(t, reports, 3)

	first := reports[0]
	require.Equal(t, int64(273000001), first.MMSI)
	require.InDelta(t, 180.0, first.Heading, 1e-9)
	require.Equal(t, "Under way using engine", first.StatusText)
	require.Equal(t, "MURMANSK", first.Destination)
	require.True(t, first.LastSeen.Equal(streamNow))

	require.Equal(t, int64(257000001), reports[1].MMSI)
	require.Equal(t, "At anchor", reports[1].StatusText)

	// A partial update keeps the earlier position and name.
	update := reports[2]
	require.InDelta(t, 4.5, update.SpeedOverGround, 1e-9)
	require.InDelta(t, 69.7, update.Latitude, 1e-9)
	require.Equal(t, "VOLNA", update.Name)
}

func TestConsumer_StreamStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	consumer := NewConsumer(ConsumerOptions{
		StreamURL: server.URL,
		Publisher: new(collector),
	})

	err := consumer.stream(context.Background())
	require.ErrorIs(t, err, ErrStreamStatus)
}

// TestConsumer_Reconnects checks that a closed stream is reopened until ctx ends.
func TestConsumer_Reconnects(t *testing.T) {
	t.Parallel()

	server, conns := provider(t, func(conn int) []string {
		return []string{fmt.Sprintf(`{"mmsi":%d,"countryCode":"RU","latitude":70,"longitude":30}`, 273000000+conn)}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	published := &collector{onPush: func(n int) {
		if n == 3 {
			cancel()
		}
	}}

	done := make(chan error, 1)

	go func() { done <- newTestConsumer(server, published).Consume(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("consumer did not stop")
	}

	require.GreaterOrEqual(t, conns.Load(), int32(3))
}

func TestFilter_Keep(t *testing.T) {
	t.Parallel()

	f := NewFilter([]int64{1}, []string{" ru "})

	require.True(t, f.Keep(1, "NO"))
	require.True(t, f.Keep(2, "RU"))
	require.True(t, f.Keep(2, "ru"))
	require.False(t, f.Keep(2, "NO"))
	require.False(t, f.Keep(2, ""))
}

func TestLoadShadowFleet(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	mmsis, err := LoadShadowFleet("")
	require.NoError(t, err)
	require.Empty(t, mmsis)

	path := filepath.Join(dir, "shadowfleet.json")
	require.NoError(t, os.WriteFile(path, []byte("[273000001, 273000002]"), 0o600))

	mmsis, err = LoadShadowFleet(path)
	require.NoError(t, err)
	require.Equal(t, []int64{273000001, 273000002}, mmsis)

	_, err = LoadShadowFleet(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err = LoadShadowFleet(path)
	require.Error(t, err)
}

func TestNewPublisher_LocalStore(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	settings.SnapshotFile = filepath.Join(t.TempDir(), "ships.json")

	publisher, err := newPublisher(settings)
	require.NoError(t, err)

	report := vessel.Report{
		MMSI:      273000001,
		Latitude:  69.7,
		Longitude: 30.1,
		LastSeen:  vessel.NewTimestamp(time.Now()),
	}
	require.NoError(t, publisher.Publish(context.Background(), report))

	all, err := snapshot.NewFileRepository(settings.SnapshotFile).GetAll(context.Background())
	require.NoError(t, err)
	require.Contains(t, all, int64(273000001))
}
