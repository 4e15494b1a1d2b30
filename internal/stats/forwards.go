package stats

import (
	"context"
	"fmt"

	"github.com/gotd/td/bin"
	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

// PublicForwards pages through the public forwards of one message or story.
// Only one page request is in flight at a time.
type PublicForwards struct {
	*sender
	directory Directory
	target    models.RecentPostID
	requestID models.RequestID
	lastTotal int
}

// NewPublicForwards creates a pager for target, a message or story of channel.
func NewPublicForwards(channel models.Channel, target models.RecentPostID, transport Transport, directory Directory, loop *Loop, opts Options) *PublicForwards {
	return &PublicForwards{
		sender:    newSender(channel, transport, loop, opts),
		directory: directory,
		target:    target,
	}
}

// Request loads the page following token; an empty token loads the first page.
// The call is ignored while a previous page is still loading.
func (f *PublicForwards) Request(token models.ForwardsToken, done func(models.PublicForwardsSlice, error)) {
	if f.requestID != 0 {
		return
	}
	switch {
	case f.target.IsMessage():
		f.requestMessage(token, done)
	case f.target.IsStory():
		f.requestStory(token, done)
	}
}

// Loading reports whether a page request is in flight.
func (f *PublicForwards) Loading() bool {
	return f.requestID != 0
}

// Total returns the largest total reported so far.
func (f *PublicForwards) Total() int {
	return f.lastTotal
}

func (f *PublicForwards) requestMessage(token models.ForwardsToken, done func(models.PublicForwardsSlice, error)) {
	req := &tg.StatsGetMessagePublicForwardsRequest{
		Channel: &tg.InputChannel{ChannelID: f.channel.ID, AccessHash: f.channel.AccessHash},
		MsgID:   f.target.MessageID.Msg,
		Offset:  token.Offset,
		Limit:   f.opts.ForwardsLimit,
	}
	var box forwardsBox
	f.requestID = f.makeRequest(
		func(ctx context.Context, inv tg.Invoker) error {
			return inv.Invoke(ctx, req, &box)
		},
		func(err error) {
			f.requestID = 0
			if err != nil {
				done(models.PublicForwardsSlice{}, err)
				return
			}
			if box.forwards != nil {
				done(f.publicForwardsSlice(box.forwards, token), nil)
				return
			}
			done(f.messagesSlice(box.messages, token), nil)
		},
	)
}

func (f *PublicForwards) requestStory(token models.ForwardsToken, done func(models.PublicForwardsSlice, error)) {
	req := &tg.StatsGetStoryPublicForwardsRequest{
		Peer:   &tg.InputPeerChannel{ChannelID: f.channel.ID, AccessHash: f.channel.AccessHash},
		ID:     f.target.StoryID.Story,
		Offset: token.Offset,
		Limit:  f.opts.ForwardsLimit,
	}
	f.requestID = f.makeRequest(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.StatsPublicForwards, error) {
			return api.StatsGetStoryPublicForwards(ctx, req)
		},
		func(result *tg.StatsPublicForwards) {
			f.requestID = 0
			done(f.publicForwardsSlice(result, token), nil)
		},
		func(err error) {
			f.requestID = 0
			done(models.PublicForwardsSlice{}, err)
		},
	))
}

// messagesSlice decodes the list-shaped answer. Forwards from peers that are
// not known locally, or without a date, are skipped.
func (f *PublicForwards) messagesSlice(result tg.MessagesMessagesClass, token models.ForwardsToken) models.PublicForwardsSlice {
	var next models.ForwardsToken
	process := func(messages []tg.MessageClass) []models.RecentPostID {
		list := make([]models.RecentPostID, 0, len(messages))
		for _, m := range messages {
			if post, ok := f.materialize(m); ok {
				list = append(list, post)
			}
		}
		return list
	}

	var (
		list      []models.RecentPostID
		allLoaded bool
		fullCount int
	)
	switch r := result.(type) {
	case *tg.MessagesMessages:
		f.directory.ProcessUsers(r.Users)
		f.directory.ProcessChats(r.Chats)
		list = process(r.Messages)
		allLoaded = true
		fullCount = len(list)
	case *tg.MessagesMessagesSlice:
		f.directory.ProcessUsers(r.Users)
		f.directory.ProcessChats(r.Chats)
		list = process(r.Messages)
		if nextRate, ok := r.GetNextRate(); ok {
			if nextRate != token.Rate {
				next.Rate = nextRate
			} else {
				allLoaded = true
			}
		}
		fullCount = r.Count
	case *tg.MessagesChannelMessages:
		f.directory.ProcessUsers(r.Users)
		f.directory.ProcessChats(r.Chats)
		list = process(r.Messages)
		allLoaded = true
		fullCount = r.Count
	case *tg.MessagesMessagesNotModified:
		allLoaded = true
	}

	f.lastTotal = max(f.lastTotal, fullCount)
	return models.PublicForwardsSlice{
		List:      list,
		Total:     f.lastTotal,
		AllLoaded: allLoaded,
		Token:     next,
	}
}

// publicForwardsSlice decodes stats.publicForwards, which mixes forwarded
// messages and reposted stories.
func (f *PublicForwards) publicForwardsSlice(data *tg.StatsPublicForwards, token models.ForwardsToken) models.PublicForwardsSlice {
	f.directory.ProcessUsers(data.Users)
	f.directory.ProcessChats(data.Chats)

	nextOffset, _ := data.GetNextOffset()
	list := make([]models.RecentPostID, 0, len(data.Forwards))
	for _, forward := range data.Forwards {
		switch fw := forward.(type) {
		case *tg.PublicForwardMessage:
			if post, ok := f.materialize(fw.Message); ok {
				list = append(list, post)
			}
		case *tg.PublicForwardStory:
			if item, ok := fw.Story.(*tg.StoryItem); ok {
				list = append(list, models.StoryPost(peerFromTL(fw.Peer), item.ID))
			}
		}
	}

	f.lastTotal = max(f.lastTotal, data.Count)
	return models.PublicForwardsSlice{
		List:      list,
		Total:     f.lastTotal,
		AllLoaded: nextOffset == "" || nextOffset == token.Offset,
		Token:     models.ForwardsToken{Offset: nextOffset},
	}
}

func (f *PublicForwards) materialize(m tg.MessageClass) (models.RecentPostID, bool) {
	id, peer, date := messageHeader(m)
	if peer.IsZero() || !f.directory.PeerLoaded(peer) || date == 0 {
		return models.RecentPostID{}, false
	}
	f.directory.AddMessage(m)
	return models.MessagePost(peer, id), true
}

// forwardsBox accepts both answers stats.getMessagePublicForwards may carry.
type forwardsBox struct {
	forwards *tg.StatsPublicForwards
	messages tg.MessagesMessagesClass
}

// Decode implements bin.Decoder.
func (b *forwardsBox) Decode(buf *bin.Buffer) error {
	id, err := buf.PeekID()
	if err != nil {
		return err
	}
	if id == tg.StatsPublicForwardsTypeID {
		var forwards tg.StatsPublicForwards
		if err := forwards.Decode(buf); err != nil {
			return fmt.Errorf("decode public forwards: %w", err)
		}
		b.forwards = &forwards
		return nil
	}
	messages, err := tg.DecodeMessagesMessages(buf)
	if err != nil {
		return fmt.Errorf("decode forwarded messages: %w", err)
	}
	b.messages = messages
	return nil
}
