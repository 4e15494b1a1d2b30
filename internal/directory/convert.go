package directory

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

func peerID(p tg.PeerClass) models.PeerID {
	switch v := p.(type) {
	case *tg.PeerUser:
		return models.UserPeer(v.UserID)
	case *tg.PeerChat:
		return models.ChatPeer(v.ChatID)
	case *tg.PeerChannel:
		return models.ChannelPeer(v.ChannelID)
	default:
		return models.PeerID{}
	}
}

func userPeer(u tg.UserClass) (models.Peer, bool) {
	user, ok := u.(*tg.User)
	if !ok {
		return models.Peer{}, false
	}
	peer := models.Peer{
		ID:       models.UserPeer(user.ID),
		Title:    strings.TrimSpace(user.FirstName + " " + user.LastName),
		Username: user.Username,
		Bot:      user.Bot,
		Deleted:  user.Deleted,
	}
	if hash, ok := user.GetAccessHash(); ok {
		peer.AccessHash = hash
	}
	return peer, true
}

func chatPeer(c tg.ChatClass) (models.Peer, bool) {
	switch v := c.(type) {
	case *tg.Chat:
		return models.Peer{ID: models.ChatPeer(v.ID), Title: v.Title}, true
	case *tg.ChatForbidden:
		return models.Peer{ID: models.ChatPeer(v.ID), Title: v.Title}, true
	case *tg.Channel:
		peer := models.Peer{ID: models.ChannelPeer(v.ID), Title: v.Title, Username: v.Username}
		if hash, ok := v.GetAccessHash(); ok {
			peer.AccessHash = hash
		}
		return peer, true
	case *tg.ChannelForbidden:
		return models.Peer{ID: models.ChannelPeer(v.ID), Title: v.Title, AccessHash: v.AccessHash}, true
	default:
		return models.Peer{}, false
	}
}

func messageFromTL(m tg.MessageClass) (models.Message, bool) {
	switch v := m.(type) {
	case *tg.Message:
		msg := models.Message{
			ID:   models.FullMsgID{Peer: peerID(v.PeerID), Msg: v.ID},
			Date: time.Unix(int64(v.Date), 0).UTC(),
			Text: v.Message,
		}
		if views, ok := v.GetViews(); ok {
			msg.Views = views
		}
		if forwards, ok := v.GetForwards(); ok {
			msg.Forwards = forwards
		}
		return msg, !msg.ID.Peer.IsZero() && msg.ID.Msg != 0
	case *tg.MessageService:
		msg := models.Message{
			ID:   models.FullMsgID{Peer: peerID(v.PeerID), Msg: v.ID},
			Date: time.Unix(int64(v.Date), 0).UTC(),
		}
		return msg, !msg.ID.Peer.IsZero() && msg.ID.Msg != 0
	default:
		return models.Message{}, false
	}
}
