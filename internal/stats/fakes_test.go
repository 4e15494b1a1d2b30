package stats

import (
	"context"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

type registration struct {
	shard models.ShardID
	id    models.RequestID
}

type dispatched struct {
	shard models.ShardID
	id    models.RequestID
}

// fakeTransport runs calls against inv. With hold set, calls are parked until
// release is called so tests can observe in-flight state.
type fakeTransport struct {
	mu           sync.Mutex
	inv          tg.Invoker
	shard        models.ShardID
	next         models.RequestID
	pending      map[models.RequestID]bool
	registered   []registration
	unregistered []registration
	dispatched   []dispatched
	hold         bool
	held         []func()
}

func newFakeTransport(inv tg.Invoker) *fakeTransport {
	return &fakeTransport{inv: inv, pending: make(map[models.RequestID]bool)}
}

func (f *fakeTransport) AllocateRequestID() models.RequestID {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	return f.next
}

func (f *fakeTransport) RegisterStatsRequest(shard models.ShardID, id models.RequestID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, registration{shard, id})
}

func (f *fakeTransport) UnregisterStatsRequest(shard models.ShardID, id models.RequestID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unregistered = append(f.unregistered, registration{shard, id})
}

func (f *fakeTransport) Pending(id models.RequestID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending[id]
}

func (f *fakeTransport) StatsShard(models.Channel) models.ShardID {
	return f.shard
}

func (f *fakeTransport) Dispatch(ctx context.Context, shard models.ShardID, id models.RequestID, call Call, complete func(error)) {
	f.mu.Lock()
	f.dispatched = append(f.dispatched, dispatched{shard, id})
	f.pending[id] = true
	run := func() {
		err := call(ctx, f.inv)
		f.mu.Lock()
		delete(f.pending, id)
		f.mu.Unlock()
		complete(err)
	}
	if f.hold {
		f.held = append(f.held, run)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()
	run()
}

// release runs the oldest parked call.
func (f *fakeTransport) release() bool {
	f.mu.Lock()
	if len(f.held) == 0 {
		f.mu.Unlock()
		return false
	}
	run := f.held[0]
	f.held = f.held[1:]
	f.mu.Unlock()
	run()
	return true
}

func (f *fakeTransport) dispatchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dispatched)
}

// fakeSchedule records the sweep instead of running a ticker.
type fakeSchedule struct {
	started int
	stopped int
	active  bool
	fn      func()
}

func (s *fakeSchedule) Schedule(_ time.Duration, fn func()) func() {
	s.started++
	s.active = true
	s.fn = fn
	return func() {
		s.stopped++
		s.active = false
	}
}

func (s *fakeSchedule) tick() {
	if s.active {
		s.fn()
	}
}

type fakeDirectory struct {
	loaded   map[models.PeerID]bool
	users    int
	chats    int
	messages []tg.MessageClass
}

func newFakeDirectory(loaded ...models.PeerID) *fakeDirectory {
	d := &fakeDirectory{loaded: make(map[models.PeerID]bool)}
	for _, p := range loaded {
		d.loaded[p] = true
	}
	return d
}

func (d *fakeDirectory) PeerLoaded(peer models.PeerID) bool { return d.loaded[peer] }

func (d *fakeDirectory) ProcessUsers(users []tg.UserClass) { d.users += len(users) }

func (d *fakeDirectory) ProcessChats(chats []tg.ChatClass) { d.chats += len(chats) }

func (d *fakeDirectory) AddMessage(msg tg.MessageClass) { d.messages = append(d.messages, msg) }

func testOptions(schedule *fakeSchedule) Options {
	return Options{Schedule: schedule.Schedule}
}

var (
	testChannel    = models.Channel{ID: 1001, AccessHash: 42, Username: "durov", Title: "Durov"}
	testSupergroup = models.Channel{ID: 2002, AccessHash: 43, Title: "Chat", Megagroup: true}
)

const testChartJSON = `{"columns":[["x",1000,2000],["y0",1,5]],"types":{"x":"x","y0":"line"},"names":{"y0":"Members"},"colors":{"y0":"GREEN#00ff00"}}`

func chartGraph() tg.StatsGraphClass {
	return &tg.StatsGraph{JSON: tg.DataJSON{Data: testChartJSON}}
}

func asyncGraph(token string) tg.StatsGraphClass {
	return &tg.StatsGraphAsync{Token: token}
}

func channelMessage(peer tg.PeerClass, id, date int) *tg.Message {
	return &tg.Message{ID: id, PeerID: peer, Date: date}
}

func broadcastStats() *tg.StatsBroadcastStats {
	return &tg.StatsBroadcastStats{
		Period:                       tg.StatsDateRangeDays{MinDate: 100, MaxDate: 200},
		Followers:                    tg.StatsAbsValueAndPrev{Current: 150, Previous: 100},
		ViewsPerPost:                 tg.StatsAbsValueAndPrev{Current: 10, Previous: 20},
		SharesPerPost:                tg.StatsAbsValueAndPrev{Current: 1, Previous: 0},
		ReactionsPerPost:             tg.StatsAbsValueAndPrev{Current: 3, Previous: 3},
		ViewsPerStory:                tg.StatsAbsValueAndPrev{},
		SharesPerStory:               tg.StatsAbsValueAndPrev{},
		ReactionsPerStory:            tg.StatsAbsValueAndPrev{},
		EnabledNotifications:         tg.StatsPercentValue{Part: 30, Total: 120},
		GrowthGraph:                  chartGraph(),
		FollowersGraph:               asyncGraph("followers"),
		MuteGraph:                    &tg.StatsGraphError{Error: "NOT_ENOUGH_DATA"},
		TopHoursGraph:                asyncGraph("hours"),
		InteractionsGraph:            asyncGraph("interactions"),
		IvInteractionsGraph:          asyncGraph("iv"),
		ViewsBySourceGraph:           asyncGraph("views"),
		NewFollowersBySourceGraph:    asyncGraph("sources"),
		LanguagesGraph:               asyncGraph("languages"),
		ReactionsByEmotionGraph:      asyncGraph("reactions"),
		StoryInteractionsGraph:       asyncGraph("story_interactions"),
		StoryReactionsByEmotionGraph: asyncGraph("story_reactions"),
		RecentPostsInteractions: []tg.PostInteractionCountersClass{
			&tg.PostInteractionCountersMessage{MsgID: 7, Views: 100, Forwards: 4, Reactions: 2},
			&tg.PostInteractionCountersStory{StoryID: 3, Views: 50, Forwards: 1, Reactions: 5},
		},
	}
}

func megagroupStats() *tg.StatsMegagroupStats {
	return &tg.StatsMegagroupStats{
		Period:                  tg.StatsDateRangeDays{MinDate: 100, MaxDate: 200},
		Members:                 tg.StatsAbsValueAndPrev{Current: 80, Previous: 40},
		Messages:                tg.StatsAbsValueAndPrev{Current: 10, Previous: 10},
		Viewers:                 tg.StatsAbsValueAndPrev{Current: 20, Previous: 25},
		Posters:                 tg.StatsAbsValueAndPrev{Current: 5, Previous: 0},
		GrowthGraph:             chartGraph(),
		MembersGraph:            asyncGraph("members"),
		NewMembersBySourceGraph: asyncGraph("sources"),
		LanguagesGraph:          asyncGraph("languages"),
		MessagesGraph:           asyncGraph("messages"),
		ActionsGraph:            asyncGraph("actions"),
		TopHoursGraph:           asyncGraph("hours"),
		WeekdaysGraph:           asyncGraph("weekdays"),
		TopPosters:              []tg.StatsGroupTopPoster{{UserID: 1, Messages: 30, AvgChars: 12}},
		TopAdmins:               []tg.StatsGroupTopAdmin{{UserID: 2, Deleted: 3, Kicked: 1, Banned: 2}},
		TopInviters:             []tg.StatsGroupTopInviter{{UserID: 3, Invitations: 9}},
		Users:                   []tg.UserClass{&tg.User{ID: 1}, &tg.User{ID: 2}, &tg.User{ID: 3}},
	}
}
