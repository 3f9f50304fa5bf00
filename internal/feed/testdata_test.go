package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

// mockTransport serves canned payloads keyed by URL and counts calls
type mockTransport struct {
	mu       sync.Mutex
	payloads map[string][]byte
	errs     map[string]error
	calls    int32
	delay    time.Duration
	gate     chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		payloads: make(map[string][]byte),
		errs:     make(map[string]error),
	}
}

func (m *mockTransport) set(url string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[url] = body
	delete(m.errs, url)
}

func (m *mockTransport) fail(url string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[url] = err
}

func (m *mockTransport) Calls() int {
	return int(atomic.LoadInt32(&m.calls))
}

func (m *mockTransport) Fetch(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.gate != nil {
		<-m.gate
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[url]; ok {
		return nil, err
	}
	if body, ok := m.payloads[url]; ok {
		return body, nil
	}
	return nil, &StatusError{Code: 404, URL: url}
}

// subwayFeed builds a small ACE snapshot around Times Sq-42 St
func subwayFeed(t *testing.T, ts uint64) []byte {
	t.Helper()
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("1.0"),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: []*gtfs.FeedEntity{
			{
				Id: proto.String("000001A"),
				TripUpdate: &gtfs.TripUpdate{
					Trip: &gtfs.TripDescriptor{TripId: proto.String("062150_A..N"), RouteId: proto.String("A")},
					StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
						{
							StopId:    proto.String("A27N"),
							Arrival:   &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(int64(ts) + 120)},
							Departure: &gtfs.TripUpdate_StopTimeEvent{Time: proto.Int64(int64(ts) + 150)},
						},
					},
				},
			},
			{
				Id: proto.String("000002A"),
				Vehicle: &gtfs.VehiclePosition{
					Trip:          &gtfs.TripDescriptor{TripId: proto.String("062150_A..N"), RouteId: proto.String("A")},
					Timestamp:     proto.Uint64(ts),
					CurrentStatus: gtfs.VehiclePosition_STOPPED_AT.Enum(),
					StopId:        proto.String("A28N"),
				},
			},
		},
	}
	b, err := proto.Marshal(msg)
	require.NoError(t, err)
	return b
}

// alertFeed builds a single weekend service change alert
func alertFeed(t *testing.T, ts uint64) []byte {
	t.Helper()
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String("1.0"),
			Timestamp:           proto.Uint64(ts),
		},
		Entity: []*gtfs.FeedEntity{{
			Id: proto.String("lmm:planned_work:1"),
			Alert: &gtfs.Alert{
				ActivePeriod: []*gtfs.TimeRange{{Start: proto.Uint64(ts), End: proto.Uint64(ts + 7200)}},
				InformedEntity: []*gtfs.EntitySelector{
					{AgencyId: proto.String("MTASBWY"), RouteId: proto.String("N")},
					{AgencyId: proto.String("MTASBWY"), StopId: proto.String("127")},
				},
				HeaderText: &gtfs.TranslatedString{Translation: []*gtfs.TranslatedString_Translation{
					{Text: proto.String("Weekend Service Change"), Language: proto.String("en")},
				}},
			},
		}},
	}
	b, err := proto.Marshal(msg)
	require.NoError(t, err)
	return b
}

const equipmentJSON = `{"equipment":[
	{"station_id":"127","equipmentno":"EL101","equipmenttype":"EL","serving":"Times Sq-42 St"},
	{"station_id":"631","equipmentno":"ES201","equipmenttype":"ES","serving":"Grand Central-42 St"},
	{"station_id":127,"equipmentno":"EL102","equipmenttype":"EL","serving":"Times Sq-42 St"}
]}`

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	decode   int
}

func (r *recorder) ObserveFetch(category, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, category+"/"+outcome)
}

func (r *recorder) ObserveDecodeFailure(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decode++
}
