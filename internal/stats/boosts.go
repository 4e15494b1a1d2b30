package stats

import (
	"context"

	"github.com/gotd/td/tg"

	"github.com/blockedby/tgstats/internal/models"
)

// Boosts fetches the boost status of a broadcast channel together with the
// first pages of its boosts and gift boosts.
type Boosts struct {
	*sender
	directory Directory
	requestID models.RequestID
	running   bool
	status    models.BoostStatus
}

// NewBoosts creates a boosts fetcher for channel.
func NewBoosts(channel models.Channel, transport Transport, directory Directory, loop *Loop, opts Options) *Boosts {
	return &Boosts{
		sender:    newSender(channel, transport, loop, opts),
		directory: directory,
	}
}

// Request loads the boost status, then the first slice of boosts, then the
// first slice of gift boosts, one call at a time, and calls done once.
//
// Request returns ErrNoChannel or ErrMegagroup without dispatching anything
// when the peer cannot be boosted, and ErrBusy while a previous run or a
// boosts page is still loading.
func (b *Boosts) Request(done func(error)) error {
	if b.channel.ID == 0 {
		return ErrNoChannel
	}
	if b.channel.Megagroup {
		return ErrMegagroup
	}
	if b.running || b.requestID != 0 {
		return ErrBusy
	}
	b.running = true
	finish := func(err error) {
		b.running = false
		done(err)
	}

	b.request(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.PremiumBoostsStatus, error) {
			return api.PremiumGetBoostsStatus(ctx, b.inputPeer())
		},
		func(result *tg.PremiumBoostsStatus) {
			// each run starts from scratch; b.status only changes once all
			// three calls succeed
			st := models.BoostStatus{
				Overview: boostsOverviewFromTL(result),
				Link:     result.BoostURL,
			}
			if giveaways, ok := result.GetPrepaidGiveaways(); ok {
				st.PrepaidGiveaway = prepaidGiveawaysFromTL(giveaways)
			}

			b.requestBoosts(models.BoostsToken{}, func(slice models.BoostsListSlice, err error) {
				if err != nil {
					finish(err)
					return
				}
				st.FirstSliceBoosts = slice
				b.requestBoosts(models.BoostsToken{Gifts: true}, func(slice models.BoostsListSlice, err error) {
					if err != nil {
						finish(err)
						return
					}
					st.FirstSliceGifts = slice
					b.status = st
					finish(nil)
				})
			})
		},
		finish,
	))
	return nil
}

// RequestBoosts loads the page of boosts following token. It returns ErrBusy
// without dispatching while Request runs or another page is loading.
func (b *Boosts) RequestBoosts(token models.BoostsToken, done func(models.BoostsListSlice, error)) error {
	if b.Busy() {
		return ErrBusy
	}
	b.requestBoosts(token, done)
	return nil
}

func (b *Boosts) requestBoosts(token models.BoostsToken, done func(models.BoostsListSlice, error)) {
	limit := b.opts.BoostsLimit
	if token.Next == "" {
		limit = b.opts.BoostsFirstSlice
	}
	req := &tg.PremiumGetBoostsListRequest{
		Gifts:  token.Gifts,
		Peer:   b.inputPeer(),
		Offset: token.Next,
		Limit:  limit,
	}
	b.requestID = b.request(invoke(
		func(ctx context.Context, api *tg.Client) (*tg.PremiumBoostsList, error) {
			return api.PremiumGetBoostsList(ctx, req)
		},
		func(result *tg.PremiumBoostsList) {
			b.requestID = 0
			if b.directory != nil {
				b.directory.ProcessUsers(result.Users)
			}
			list := make([]models.Boost, 0, len(result.Boosts))
			for _, boost := range result.Boosts {
				list = append(list, boostFromTL(boost, b.channel.Peer(), b.opts.LinkDomain))
			}
			next, _ := result.GetNextOffset()
			done(models.BoostsListSlice{
				List:            list,
				MultipliedTotal: result.Count,
				// Compares the multiplied total with the raw page size, so
				// a multiplied first page never reads as complete.
				AllLoaded: result.Count == len(result.Boosts),
				Token:     models.BoostsToken{Next: next, Gifts: token.Gifts},
			}, nil)
		},
		func(err error) {
			b.requestID = 0
			done(models.BoostsListSlice{}, err)
		},
	))
}

// Loading reports whether a boosts page is in flight.
func (b *Boosts) Loading() bool {
	return b.requestID != 0
}

// Busy reports whether Request is running or a boosts page is in flight.
func (b *Boosts) Busy() bool {
	return b.running || b.requestID != 0
}

// BoostStatus returns the status assembled by the last successful Request.
func (b *Boosts) BoostStatus() models.BoostStatus {
	return b.status
}

func (b *Boosts) inputPeer() tg.InputPeerClass {
	return &tg.InputPeerChannel{ChannelID: b.channel.ID, AccessHash: b.channel.AccessHash}
}
