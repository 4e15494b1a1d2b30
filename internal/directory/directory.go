// Package directory keeps the peers and messages that statistics results
// reference, in memory for lookups and in the database for restarts.
package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gotd/td/tg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blockedby/tgstats/internal/logger"
	"github.com/blockedby/tgstats/internal/models"
	"github.com/blockedby/tgstats/internal/stats"
)

// Directory is the local store of peers and materialized messages.
// Lookups are served from memory; changes are queued for a background writer
// and enqueueing never blocks, however slow the database is.
type Directory struct {
	db  *gorm.DB
	log *logger.Logger

	mu       sync.RWMutex
	peers    map[models.PeerID]models.Peer
	messages map[models.FullMsgID]models.Message

	wmu     sync.Mutex
	queue   []any
	wake    chan struct{}
	closed  bool
	pending sync.WaitGroup
	done    chan struct{}
}

var _ stats.Directory = (*Directory)(nil)

// New creates a directory. A nil db keeps everything in memory only.
func New(db *gorm.DB) (*Directory, error) {
	d := &Directory{
		db:       db,
		log:      logger.Get(),
		peers:    make(map[models.PeerID]models.Peer),
		messages: make(map[models.FullMsgID]models.Message),
		done:     make(chan struct{}),
	}
	if db == nil {
		close(d.done)
		return d, nil
	}

	if err := db.AutoMigrate(&peerRecord{}, &messageRecord{}); err != nil {
		return nil, fmt.Errorf("migrate directory: %w", err)
	}
	d.wake = make(chan struct{}, 1)
	go d.writer()
	return d, nil
}

// Load fills the in-memory index from the database.
func (d *Directory) Load(ctx context.Context) error {
	if d.db == nil {
		return nil
	}

	var peers []peerRecord
	if err := d.db.WithContext(ctx).Find(&peers).Error; err != nil {
		return fmt.Errorf("load peers: %w", err)
	}
	var messages []messageRecord
	if err := d.db.WithContext(ctx).Find(&messages).Error; err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	d.mu.Lock()
	for _, r := range peers {
		p := r.model()
		d.peers[p.ID] = p
	}
	for _, r := range messages {
		m := r.model()
		d.messages[m.ID] = m
	}
	d.mu.Unlock()

	d.log.Info().Int("peers", len(peers)).Int("messages", len(messages)).Msg("directory: loaded")
	return nil
}

// PeerLoaded reports whether peer is known.
func (d *Directory) PeerLoaded(peer models.PeerID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.peers[peer]
	return ok
}

// Peer returns the stored peer.
func (d *Directory) Peer(id models.PeerID) (models.Peer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.peers[id]
	return p, ok
}

// Message returns the stored message id of peer.
func (d *Directory) Message(peer models.PeerID, id int) (models.Message, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.messages[models.FullMsgID{Peer: peer, Msg: id}]
	return m, ok
}

// ProcessUsers stores users. Empty users are ignored.
func (d *Directory) ProcessUsers(users []tg.UserClass) {
	changed := make(map[models.PeerID]models.Peer)
	d.mu.Lock()
	for _, u := range users {
		peer, ok := userPeer(u)
		if !ok {
			continue
		}
		d.peers[peer.ID] = peer
		changed[peer.ID] = peer
	}
	d.mu.Unlock()
	d.enqueue(peerRecords(changed))
}

// ProcessChats stores chats and channels. Empty chats are ignored.
func (d *Directory) ProcessChats(chats []tg.ChatClass) {
	changed := make(map[models.PeerID]models.Peer)
	d.mu.Lock()
	for _, c := range chats {
		peer, ok := chatPeer(c)
		if !ok {
			continue
		}
		if prev, ok := d.peers[peer.ID]; ok && peer.AccessHash == 0 {
			peer.AccessHash = prev.AccessHash
		}
		d.peers[peer.ID] = peer
		changed[peer.ID] = peer
	}
	d.mu.Unlock()
	d.enqueue(peerRecords(changed))
}

func peerRecords(peers map[models.PeerID]models.Peer) []peerRecord {
	records := make([]peerRecord, 0, len(peers))
	for _, p := range peers {
		records = append(records, peerToRecord(p))
	}
	return records
}

// AddMessage materializes msg. Messages without a peer or id are ignored.
func (d *Directory) AddMessage(msg tg.MessageClass) {
	m, ok := messageFromTL(msg)
	if !ok {
		return
	}
	d.mu.Lock()
	d.messages[m.ID] = m
	d.mu.Unlock()
	d.enqueue([]messageRecord{messageToRecord(m)})
}

// Flush waits until every queued write reached the database.
func (d *Directory) Flush() {
	d.pending.Wait()
}

// Close flushes pending writes and stops the writer.
func (d *Directory) Close() {
	d.wmu.Lock()
	if !d.closed && d.wake != nil {
		close(d.wake)
	}
	d.closed = true
	d.wmu.Unlock()
	<-d.done
}

func (d *Directory) enqueue(batch any) {
	if d.wake == nil {
		return
	}
	switch b := batch.(type) {
	case []peerRecord:
		if len(b) == 0 {
			return
		}
	case []messageRecord:
		if len(b) == 0 {
			return
		}
	}
	d.wmu.Lock()
	defer d.wmu.Unlock()
	if d.closed {
		return
	}
	d.pending.Add(1)
	d.queue = append(d.queue, batch)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// writer drains the queue each time it is woken, and once more after Close.
func (d *Directory) writer() {
	defer close(d.done)
	for range d.wake {
		d.drain()
	}
	d.drain()
}

func (d *Directory) drain() {
	for {
		d.wmu.Lock()
		batches := d.queue
		d.queue = nil
		d.wmu.Unlock()
		if len(batches) == 0 {
			return
		}
		if len(batches) > 1 {
			d.log.Debug().Int("batches", len(batches)).Msg("directory: draining backlog")
		}
		for _, batch := range batches {
			if err := d.write(batch); err != nil {
				d.log.Warn().Err(err).Msg("directory: write failed")
			}
			d.pending.Done()
		}
	}
}

func (d *Directory) write(batch any) error {
	switch b := batch.(type) {
	case []peerRecord:
		return d.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kind"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"access_hash", "title", "username", "bot", "deleted", "updated_at"}),
		}).Create(&b).Error
	case []messageRecord:
		return d.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "peer_kind"}, {Name: "peer_id"}, {Name: "msg_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"date", "text", "views", "forwards", "updated_at"}),
		}).Create(&b).Error
	default:
		return fmt.Errorf("unexpected batch %T", batch)
	}
}
