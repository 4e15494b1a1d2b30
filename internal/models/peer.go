// Package models defines shared data types for the application.
package models

import (
	"fmt"
	"time"
)

// PeerKind distinguishes the three telegram peer namespaces.
type PeerKind string

// PeerKind constants define the supported peer namespaces.
const (
	PeerUser    PeerKind = "user"
	PeerChat    PeerKind = "chat"
	PeerChannel PeerKind = "channel"
)

// PeerID identifies a user, legacy chat or channel.
type PeerID struct {
	Kind PeerKind `json:"kind"`
	ID   int64    `json:"id"`
}

// UserPeer returns the peer id of a user.
func UserPeer(id int64) PeerID { return PeerID{Kind: PeerUser, ID: id} }

// ChatPeer returns the peer id of a legacy group chat.
func ChatPeer(id int64) PeerID { return PeerID{Kind: PeerChat, ID: id} }

// ChannelPeer returns the peer id of a channel or supergroup.
func ChannelPeer(id int64) PeerID { return PeerID{Kind: PeerChannel, ID: id} }

// IsZero reports whether the peer id is unset.
func (p PeerID) IsZero() bool {
	return p.ID == 0
}

func (p PeerID) String() string {
	if p.IsZero() {
		return "empty"
	}
	return fmt.Sprintf("%s:%d", p.Kind, p.ID)
}

// FullMsgID is a message id qualified by the peer it belongs to.
type FullMsgID struct {
	Peer PeerID `json:"peer"`
	Msg  int    `json:"msg"`
}

// IsZero reports whether the message id is unset.
func (id FullMsgID) IsZero() bool {
	return id.Msg == 0
}

// FullStoryID is a story id qualified by the peer that posted it.
type FullStoryID struct {
	Peer  PeerID `json:"peer"`
	Story int    `json:"story"`
}

// IsZero reports whether the story id is unset.
func (id FullStoryID) IsZero() bool {
	return id.Story == 0
}

// RecentPostID points at either a message or a story, never both.
type RecentPostID struct {
	MessageID FullMsgID   `json:"message_id,omitempty"`
	StoryID   FullStoryID `json:"story_id,omitempty"`
}

// MessagePost builds a RecentPostID referencing a message.
func MessagePost(peer PeerID, msg int) RecentPostID {
	return RecentPostID{MessageID: FullMsgID{Peer: peer, Msg: msg}}
}

// StoryPost builds a RecentPostID referencing a story.
func StoryPost(peer PeerID, story int) RecentPostID {
	return RecentPostID{StoryID: FullStoryID{Peer: peer, Story: story}}
}

// IsMessage reports whether the id references a message.
func (id RecentPostID) IsMessage() bool {
	return !id.MessageID.IsZero()
}

// IsStory reports whether the id references a story.
func (id RecentPostID) IsStory() bool {
	return id.MessageID.IsZero() && !id.StoryID.IsZero()
}

// ShardID is the datacenter a request is routed to. Zero means the main connection.
type ShardID int

// RequestID identifies a single dispatched remote call.
type RequestID int64

// Channel is a resolved broadcast channel or supergroup.
type Channel struct {
	ID         int64   `json:"id"`
	AccessHash int64   `json:"access_hash"`
	Username   string  `json:"username,omitempty"`
	Title      string  `json:"title"`
	Megagroup  bool    `json:"megagroup"`
	StatsDC    ShardID `json:"stats_dc,omitempty"`
}

// Peer returns the peer id of the channel.
func (c Channel) Peer() PeerID {
	return ChannelPeer(c.ID)
}

// Peer is what the local directory knows about a user, chat or channel.
type Peer struct {
	ID         PeerID `json:"id"`
	AccessHash int64  `json:"access_hash,omitempty"`
	Title      string `json:"title,omitempty"`
	Username   string `json:"username,omitempty"`
	Bot        bool   `json:"bot,omitempty"`
	Deleted    bool   `json:"deleted,omitempty"`
}

// Message is a message materialized in the local directory.
type Message struct {
	ID       FullMsgID `json:"id"`
	Date     time.Time `json:"date"`
	Text     string    `json:"text,omitempty"`
	Views    int       `json:"views,omitempty"`
	Forwards int       `json:"forwards,omitempty"`
}
