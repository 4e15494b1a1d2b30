package directory

import (
	"time"

	"github.com/blockedby/tgstats/internal/models"
)

// peerRecord is a row of the peers table.
type peerRecord struct {
	Kind       string `gorm:"primaryKey;size:16"`
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	AccessHash int64
	Title      string
	Username   string `gorm:"index"`
	Bot        bool
	Deleted    bool
	UpdatedAt  time.Time
}

func (peerRecord) TableName() string { return "stats_peers" }

// messageRecord is a row of the materialized messages table.
type messageRecord struct {
	PeerKind  string `gorm:"primaryKey;size:16"`
	PeerID    int64  `gorm:"primaryKey;autoIncrement:false"`
	MsgID     int    `gorm:"primaryKey;autoIncrement:false"`
	Date      time.Time
	Text      string
	Views     int
	Forwards  int
	UpdatedAt time.Time
}

func (messageRecord) TableName() string { return "stats_messages" }

func peerToRecord(p models.Peer) peerRecord {
	return peerRecord{
		Kind:       string(p.ID.Kind),
		ID:         p.ID.ID,
		AccessHash: p.AccessHash,
		Title:      p.Title,
		Username:   p.Username,
		Bot:        p.Bot,
		Deleted:    p.Deleted,
	}
}

func (r peerRecord) model() models.Peer {
	return models.Peer{
		ID:         models.PeerID{Kind: models.PeerKind(r.Kind), ID: r.ID},
		AccessHash: r.AccessHash,
		Title:      r.Title,
		Username:   r.Username,
		Bot:        r.Bot,
		Deleted:    r.Deleted,
	}
}

func messageToRecord(m models.Message) messageRecord {
	return messageRecord{
		PeerKind: string(m.ID.Peer.Kind),
		PeerID:   m.ID.Peer.ID,
		MsgID:    m.ID.Msg,
		Date:     m.Date,
		Text:     m.Text,
		Views:    m.Views,
		Forwards: m.Forwards,
	}
}

func (r messageRecord) model() models.Message {
	return models.Message{
		ID: models.FullMsgID{
			Peer: models.PeerID{Kind: models.PeerKind(r.PeerKind), ID: r.PeerID},
			Msg:  r.MsgID,
		},
		Date:     r.Date.UTC(),
		Text:     r.Text,
		Views:    r.Views,
		Forwards: r.Forwards,
	}
}
